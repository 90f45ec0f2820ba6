package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dirStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	fileStyle        = lipgloss.NewStyle()
	placeholderStyle = lipgloss.NewStyle().Faint(true)
	headerStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
)

// newTreeCmd prints the tree as the browser first shows it
func newTreeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <path>",
		Short: "Print the project tree as first shown in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			root, err := resolveProjectRoot(args[0])
			if err != nil {
				return err
			}
			model := newTreeModel(root)
			if _, err := newPopulator(osLister{}, cfg.Sort, logger).populate(model, root, rootID); err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), model)
			return nil
		},
	}
}

// printTree writes the materialised rows of m, placeholders as "…"
func printTree(w io.Writer, m *treeModel) {
	root, _ := m.node(rootID)
	fmt.Fprintln(w, headerStyle.Render(root.Name))
	printChildren(w, m, rootID, 1)
}

func printChildren(w io.Writer, m *treeModel, id nodeID, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range m.children(id) {
		n, _ := m.node(c)
		switch {
		case n.isPlaceholder():
			fmt.Fprintln(w, indent+placeholderStyle.Render("…"))
		case n.isDir():
			fmt.Fprintln(w, indent+dirStyle.Render(n.Name+"/"))
		default:
			fmt.Fprintln(w, indent+fileStyle.Render(n.Name))
		}
		printChildren(w, m, c, depth+1)
	}
}
