package main

import (
	"fmt"
	"os"

	"github.com/dgnsrekt/bookvoice/ui"
	"github.com/dgnsrekt/bookvoice/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const maxWidth = 120

var chaptersCmd = &cobra.Command{
	Use:   "chapters PDF",
	Short: "List the chapters found in a PDF",
	Long: paragraph(fmt.Sprintf("\n%s the chapters a PDF splits into, with their size and opening words. Use the numbers with convert --chapters.",
		keyword("List"))),
	Example: paragraph("bookvoice chapters novel.pdf"),
	Args:    cobra.ExactArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"pdf"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(_ *cobra.Command, args []string) error {
		chapters, err := loadChapters(utils.ExpandPath(args[0]), "")
		if err != nil {
			return err
		}

		style := viper.GetString("style")
		width := 80
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = min(w, maxWidth)
			}
		} else {
			style = "notty"
		}

		out, err := ui.RenderChapters(chapters, style, width)
		if err != nil {
			return err //nolint:wrapcheck
		}
		fmt.Print(out)
		return nil
	},
}
