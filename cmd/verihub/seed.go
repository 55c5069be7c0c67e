package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"verihub/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the tool catalog and universities",
	Long: `Populates an empty database with the built-in tool catalog and the
starter university list. An already-seeded database is left as-is apart
from campus entries added in newer releases.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Seed(); err != nil {
			return err
		}

		tools, err := st.AllTools()
		if err != nil {
			return err
		}
		unis, err := st.AllUniversities()
		if err != nil {
			return err
		}
		fmt.Printf("Database ready: %d tools, %d universities\n", len(tools), len(unis))
		return nil
	},
}
