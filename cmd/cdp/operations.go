package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudera/cdpcore/pkg/model"
)

func init() {
	rootCmd.AddCommand(operationsCmd)
}

var operationsCmd = &cobra.Command{
	Use:   "operations [service-document]",
	Short: "List the operations a service document declares",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		docData, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read service document: %w", err)
		}
		svc, err := model.Load(docData)
		if err != nil {
			return err
		}
		for _, name := range svc.OperationNames() {
			op, err := svc.Operation(name)
			if err != nil {
				return err
			}
			suffix := ""
			if op.CanPaginate() {
				suffix = " (pageable)"
			}
			fmt.Printf("%s  %s %s%s\n", name, op.Method, op.Path, suffix)
		}
		return nil
	},
}
