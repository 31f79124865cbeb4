package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/gradgate/internal/app"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

func ResetCmd() *cobra.Command {
	var (
		remoteID   string
		nationalID string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Return checked-in or denied companions to pending",
		Long: `Reset check-ins for rehearsals. Tokens stay valid. Without --remote-id or
--national-id every companion is reset, so --yes is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset check-ins without --yes")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					n     int64
					err   error
					scope = "all graduates"
				)
				switch {
				case nationalID != "":
					scope = "national id " + nationalID
					n, err = a.Admin.ResetCheckInsByNationalID(ctx, nationalID)
				case remoteID != "":
					scope = "graduate " + remoteID
					n, err = a.Admin.ResetCheckIns(ctx, remoteID)
				default:
					n, err = a.Admin.ResetCheckIns(ctx, "")
				}
				if errors.Is(err, domain.ErrGraduateNotFound) {
					return fmt.Errorf("%s not found", scope)
				}
				if err != nil {
					return err
				}
				warnColor.Fprintf(cmd.OutOrStdout(), "Reset %d companion(s) of %s\n", n, scope)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&remoteID, "remote-id", "", "only reset the companions of this graduate")
	cmd.Flags().StringVar(&nationalID, "national-id", "", "only reset the companions of graduates with this national id")
	cmd.MarkFlagsMutuallyExclusive("remote-id", "national-id")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func VerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a companion in by token, as a scanning station would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				v := a.Verification.Verify(ctx, args[0])
				out := cmd.OutOrStdout()

				resultColor(v.Result).Fprintln(out, v.Result)
				if v.Student != nil {
					printField(cmd, "student", v.Student.FirstName+" "+v.Student.LastName)
					if v.Student.Career != "" {
						printField(cmd, "career", v.Student.Career)
					}
				}
				if v.CompanionSlot > 0 {
					printField(cmd, "companion", v.CompanionSlot)
				}
				if v.CheckedInAt != nil {
					printField(cmd, "checked in at", v.CheckedInAt.In(a.Config.Location).Format("2006-01-02 15:04:05"))
				}

				if v.Result == domain.ResultUnavailable {
					return errors.New("store unavailable")
				}
				return nil
			})
		},
	}
}

func resultColor(r domain.VerificationResult) *color.Color {
	switch r {
	case domain.ResultGranted:
		return okColor
	case domain.ResultAlreadyUsed:
		return warnColor
	default:
		return errColor
	}
}
