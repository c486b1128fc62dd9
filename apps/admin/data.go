package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (cli *commandLine) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty store with the sample students",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cli.studSvc.Seed(cmd.Context(), cli.fallback.Students())
			if err != nil {
				return err
			}
			cli.printf("%s\n", res.Message)
			return nil
		},
	}
}

func (cli *commandLine) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import the students of a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cli.usage(cmd, args)
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading import file")
			}

			res, err := cli.studSvc.Import(cmd.Context(), cli.caller(), payload)
			if err != nil {
				return err
			}
			cli.printf("%s\n", res.Message)
			for _, rej := range res.Rejected {
				cli.printf("  entry %d %s: %s\n", rej.Index, rej.Email, rej.Reason)
			}
			if !res.Success {
				return errors.New("nothing imported")
			}
			return nil
		},
	}
}

func (cli *commandLine) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Export every student as JSON, to FILE or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			students, err := cli.dir.Export(cmd.Context(), cli.caller())
			if err != nil {
				return err
			}

			var w io.Writer = cli.out
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return errors.Wrap(err, "creating export file")
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return errors.Wrap(enc.Encode(students), "writing students")
		},
	}
}
