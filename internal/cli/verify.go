package cli

import (
	"fmt"

	"github.com/ralt/rpmkit/internal/models"
	"github.com/ralt/rpmkit/internal/scanner"
	"github.com/ralt/rpmkit/internal/verify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <package.rpm>...",
		Short: "Check package digests and cross-read packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := scanner.RequireRPM(path); err != nil {
					return &models.RpmKitError{Type: models.ErrPackageRead, Package: path, Err: err}
				}
			}

			failed := 0
			for _, path := range args {
				report, err := verify.CrossCheck(path)
				if report != nil {
					for _, c := range report.Checks {
						status := "ok"
						if !c.OK {
							status = "FAILED " + c.Detail
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", report.Identity, c.Name, status)
					}
				}
				if err != nil {
					logrus.Errorf("%s: %v", path, err)
					failed++
				}
			}
			if failed > 0 {
				return &models.RpmKitError{
					Type: models.ErrVerify,
					Err:  fmt.Errorf("%d of %d packages failed verification", failed, len(args)),
				}
			}
			return nil
		},
	}
}
