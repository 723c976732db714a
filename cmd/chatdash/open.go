package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatdash/internal/open"
)

func openCmd() *cobra.Command {
	var hitSeq int

	cmd := &cobra.Command{
		Use:   "open <transcriptKey>",
		Short: "Open the transcript file in $EDITOR at the hit line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			key, err := db.ResolveKey(args[0])
			if err != nil {
				return err
			}
			return open.OpenTranscript(db, key, hitSeq)
		},
	}

	cmd.Flags().IntVar(&hitSeq, "hit", -1, "Message number to jump to")

	return cmd
}
