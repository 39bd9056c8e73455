package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"beatscope/internal/analyze"
	"beatscope/internal/config"
	"beatscope/internal/history"
	"beatscope/internal/player"
	"beatscope/internal/session"
	"beatscope/internal/ui"
)

func main() {
	cfg := config.Load()

	// The TUI owns the terminal; logs go to a file or nowhere.
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	var initialPath string
	if len(os.Args) > 1 {
		initialPath = os.Args[1]
	}

	client := analyze.NewClient(cfg.APIURL)
	ctrl := session.NewController(client)
	pb := player.New(cfg.Volume)
	hist := history.Load(cfg.HistoryPath)

	log.Printf("beatscope starting (api: %s)", cfg.APIURL)

	model := ui.New(cfg, ctrl, pb, client, hist, initialPath)
	prog := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "beatscope: %v\n", err)
		os.Exit(1)
	}

	ctrl.Cancel()
	if err := pb.Close(); err != nil {
		log.Printf("close player: %v", err)
	}
}
