package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/service"
)

var (
	seedName     string
	seedClientID string
	seedKind     string
	seedBranch   string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Provision an organization with client credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		kind := domain.OrganizationKind(seedKind)
		if kind != domain.OrganizationStandard && kind != domain.OrganizationPharmacy {
			return fmt.Errorf("unknown organization kind %q", seedKind)
		}

		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := service.NewProvisionService(a.db).Provision(cmd.Context(), service.ProvisionRequest{
			Name:       seedName,
			Kind:       kind,
			ClientID:   seedClientID,
			BranchName: seedBranch,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Organization created successfully!")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Organization ID: %s\n", res.Organization.ID)
		fmt.Fprintf(out, "Branch ID:       %s\n", res.BranchID)
		fmt.Fprintf(out, "Client ID:       %s\n", res.Organization.OAuthClientID)
		fmt.Fprintf(out, "Client Secret:   %s\n", res.ClientSecret)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "The secret is not stored and cannot be shown again.")
		fmt.Fprintln(out, "Example token request:")
		fmt.Fprintf(out, `curl -X POST http://localhost:%s/api/v1/oauth/token \
  -H "Content-Type: application/json" \
  -d '{"grant_type": "client_credentials", "client_id": "%s", "client_secret": "<secret>"}'
`, cfg.Port, res.Organization.OAuthClientID)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedName, "name", "Demo Organization", "Organization name")
	seedCmd.Flags().StringVar(&seedClientID, "client-id", "demo-client", "OAuth client ID")
	seedCmd.Flags().StringVar(&seedKind, "kind", string(domain.OrganizationStandard), "Organization kind (standard or pharmacy)")
	seedCmd.Flags().StringVar(&seedBranch, "branch", "Main", "Name of the first branch")
}
