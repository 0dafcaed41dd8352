package main

import (
	"os"

	"github.com/go-sif/accrue/datasource/manifest"
	"github.com/spf13/cobra"
)

func newManifestCommand() *cobra.Command {
	f := &dataFlags{}
	var out string
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write the chunks of the selected data as a JSON lines manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.manifest = ""
			_, newSource, err := f.build()
			if err != nil {
				return err
			}
			source, closeSource, err := newSource()
			if err != nil {
				return err
			}
			defer closeSource()
			w := cmd.OutOrStdout()
			if len(out) > 0 {
				fw, err := os.Create(out)
				if err != nil {
					return err
				}
				defer fw.Close()
				w = fw
			}
			n, err := manifest.Write(w, source)
			if err != nil {
				return err
			}
			cmd.PrintErrf("Wrote %d chunk descriptors\n", n)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "", "file to write, instead of stdout")
	return cmd
}
