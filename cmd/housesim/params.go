package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/housemarket/internal/config"
)

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Show the model parameters and the variables that set them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			printParams(cfg, config.Default())
			return nil
		},
	}
}

// printParams lists every parameter, highlighting values that differ from
// the defaults.
func printParams(cfg, def *config.Config) {
	changed := color.New(color.FgYellow, color.Bold).SprintFunc()

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Parameter", "Variable", "Value", "Default"}),
	)

	cv := reflect.ValueOf(cfg).Elem()
	dv := reflect.ValueOf(def).Elem()
	t := cv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		name, ok := f.Tag.Lookup("env")
		if !ok {
			continue
		}
		val := fmt.Sprint(cv.Field(i).Interface())
		dflt := fmt.Sprint(dv.Field(i).Interface())
		if val != dflt {
			val = changed(val)
		}
		table.Append([]string{f.Name, config.EnvPrefix + name, val, dflt})
	}
	table.Render()
}
