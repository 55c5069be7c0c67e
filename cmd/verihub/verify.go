package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"verihub/internal/docgen"
	"verihub/internal/engine"
	"verihub/internal/identity"
	"verihub/internal/sheerid"
	"verihub/internal/store"
	"verihub/internal/supervisor"
)

var (
	verifyTool       string
	verifyUniversity string
	verifyFirstName  string
	verifyLastName   string
	verifyEmail      string
	verifyBirthDate  string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [url]",
	Short: "Run a single verification from the command line",
	Long: `Runs one verification against the landing URL and prints the step
trace. The run bypasses the token ledger; it is the operator's own
machine. Identity fields default to generated values; supply all of
--first-name, --last-name, --email and --birth-date to pin them.

Example:
  verihub verify "https://offers.spotify.com/verify?verificationId=..." --tool spotify-verify`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyTool, "tool", "", "Tool id (default: detected from the URL)")
	verifyCmd.Flags().StringVar(&verifyUniversity, "university", "", "University row id (default: weighted draw)")
	verifyCmd.Flags().StringVar(&verifyFirstName, "first-name", "", "Pin the first name")
	verifyCmd.Flags().StringVar(&verifyLastName, "last-name", "", "Pin the last name")
	verifyCmd.Flags().StringVar(&verifyEmail, "email", "", "Pin the email address")
	verifyCmd.Flags().StringVar(&verifyBirthDate, "birth-date", "", "Pin the birth date (YYYY-MM-DD)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := args[0]

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Seed(); err != nil {
		return err
	}

	renderer := docgen.NewRodRenderer(cfg.Browser)
	if err := renderer.Start(cmd.Context()); err != nil {
		return err
	}
	defer renderer.Shutdown()

	client := sheerid.New(cfg.SheerID.ServicesURL, cfg.SheerID.StatusURL)
	gen := identity.New()
	orch := engine.NewOrchestrator(client, docgen.NewBuilder(renderer, gen), gen, cfg.SheerID.ServicesURL)
	sup := supervisor.New(st, orch, engine.NewPoller(client), client, gen, cfg.Economy)

	toolID := verifyTool
	if toolID == "" {
		toolID = engine.DetectTool(url)
	}
	manual := verifyFirstName != "" || verifyLastName != "" || verifyEmail != "" || verifyBirthDate != ""

	fmt.Printf("Running %s against %s\n", toolID, url)
	report, err := sup.ExecuteRun(cmd.Context(), supervisor.RunParams{
		ToolID:       toolID,
		URL:          url,
		UniversityID: verifyUniversity,
		AutoGenerate: !manual,
		FirstName:    verifyFirstName,
		LastName:     verifyLastName,
		Email:        verifyEmail,
		BirthDate:    verifyBirthDate,
	})
	if err != nil {
		return err
	}

	for _, step := range report.Steps {
		fmt.Printf("  %-40s %d  %s\n", step.Step, step.Status, step.Detail)
	}
	fmt.Printf("Status: %s\n", report.Status)
	if report.Message != "" {
		fmt.Printf("Message: %s\n", report.Message)
	}
	if report.RewardCode != "" {
		fmt.Printf("Reward code: %s\n", report.RewardCode)
	}
	if report.RedirectURL != "" {
		fmt.Printf("Claim link: %s\n", report.RedirectURL)
	}
	return nil
}
