package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/venturelab/compass/internal/entitlement"
	"github.com/venturelab/compass/internal/session"
)

var (
	licenseKey     string
	licenseEmail   string
	licenseTier    string
	licenseExpires string
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Show or change the subscription tier",
}

var licenseShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current tier and its features",
	RunE:  runLicenseShow,
}

var licenseActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Activate a subscription key",
	RunE:  runLicenseActivate,
}

var licenseDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Drop back to the free tier",
	RunE:  runLicenseDeactivate,
}

func init() {
	licenseActivateCmd.Flags().StringVar(&licenseKey, "key", "", "subscription key")
	licenseActivateCmd.Flags().StringVar(&licenseEmail, "email", "", "account email")
	licenseActivateCmd.Flags().StringVar(&licenseTier, "tier", "pro", "tier the key grants (pro, enterprise)")
	licenseActivateCmd.Flags().StringVar(&licenseExpires, "expires", "", "expiry date (YYYY-MM-DD, empty for none)")
	licenseActivateCmd.MarkFlagRequired("key")

	licenseCmd.AddCommand(licenseShowCmd)
	licenseCmd.AddCommand(licenseActivateCmd)
	licenseCmd.AddCommand(licenseDeactivateCmd)
	rootCmd.AddCommand(licenseCmd)
}

func runLicenseShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ent, err := entitlement.Load(s.Dir)
	if err != nil {
		return err
	}

	fmt.Printf("Tier: %s\n", ent.Tier)
	if ent.Email != "" {
		fmt.Printf("Account: %s\n", ent.Email)
	}
	if !ent.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", ent.ExpiresAt.Format("2006-01-02"))
	}

	fmt.Println("\nFeatures:")
	for _, feature := range entitlement.TierFeatures[entitlement.TierFree] {
		fmt.Printf("  %s\n", feature)
	}
	if ent.Tier.Paid() {
		for _, feature := range entitlement.TierFeatures[entitlement.TierPro] {
			fmt.Printf("  %s\n", feature)
		}
	}
	if ent.Tier == entitlement.TierEnterprise {
		for _, feature := range entitlement.TierFeatures[entitlement.TierEnterprise] {
			fmt.Printf("  %s\n", feature)
		}
	}
	return nil
}

func runLicenseActivate(cmd *cobra.Command, args []string) error {
	tier := entitlement.Tier(licenseTier)
	if !tier.Paid() {
		return fmt.Errorf("tier must be 'pro' or 'enterprise', got %q", licenseTier)
	}

	var expires time.Time
	if licenseExpires != "" {
		var err error
		if expires, err = time.Parse("2006-01-02", licenseExpires); err != nil {
			return fmt.Errorf("parse expiry date: %w", err)
		}
	}

	s, err := session.Init(rootWorkspace)
	if err != nil {
		return err
	}
	defer s.Close()

	ent := &entitlement.Entitlement{
		Tier:      tier,
		Key:       licenseKey,
		Email:     licenseEmail,
		IssuedAt:  time.Now(),
		ExpiresAt: expires,
	}
	if err := ent.Save(s.Dir); err != nil {
		return err
	}

	fmt.Printf("Activated %s tier.\n", tier)
	if tier.Paid() {
		fmt.Println("MVP and Launch stages are now unlocked.")
	}
	return nil
}

func runLicenseDeactivate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := entitlement.Default().Save(s.Dir); err != nil {
		return err
	}
	fmt.Println("Back on the free tier.")
	return nil
}
