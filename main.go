// Package main provides the entry point for the novelterm CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/novelterm/novelterm/booksource"
	"github.com/novelterm/novelterm/internal/config"
	"github.com/novelterm/novelterm/tts"
	"github.com/novelterm/novelterm/tts/audio"
	"github.com/novelterm/novelterm/tts/engines/mock"
	"github.com/novelterm/novelterm/tts/engines/piper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	sourceName string
	voiceName  string
	usePager   bool
	debug      bool
	page       int
	pageSize   int

	rootCmd = &cobra.Command{
		Use:           "novelterm",
		Short:         "Read web novels in the terminal, with text to speech",
		SilenceErrors: false,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if configFile != "" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					log.Warn("Could not parse configuration file", "err", err)
				}
			}
			if debug || viper.GetBool("debug") {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	sourcesCmd = &cobra.Command{
		Use:   "sources",
		Short: "List the configured book sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sources, err := loadSources(cfg)
			if err != nil {
				return err
			}
			for _, src := range sources {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					src.BookSourceName, src.BookSourceGroup, src.BookSourceURL)
			}
			return nil
		},
	}

	searchCmd = &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search the selected source for books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openParser()
			if err != nil {
				return err
			}
			defer p.Close()

			books, err := p.SearchBooks(cmd.Context(), args[0], page, pageSize)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
				return nil
			}
			for _, b := range books {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", b.Name, b.Author, b.BookURL)
			}
			return nil
		},
	}

	bookCmd = &cobra.Command{
		Use:   "book <url>",
		Short: "Show book metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openParser()
			if err != nil {
				return err
			}
			defer p.Close()

			info, err := p.BookInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Name:    %s\n", info.Name)
			fmt.Fprintf(w, "Author:  %s\n", info.Author)
			if info.Kind != "" {
				fmt.Fprintf(w, "Kind:    %s\n", info.Kind)
			}
			if info.LastChapter != "" {
				fmt.Fprintf(w, "Latest:  %s\n", info.LastChapter)
			}
			if info.Intro != "" {
				fmt.Fprintf(w, "\n%s\n", info.Intro)
			}
			return nil
		},
	}

	tocCmd = &cobra.Command{
		Use:   "toc <url>",
		Short: "List a book's chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openParser()
			if err != nil {
				return err
			}
			defer p.Close()

			info, err := p.BookInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			chapters, err := p.Chapters(cmd.Context(), info.TocURL)
			if err != nil {
				return err
			}
			for i, ch := range chapters {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d\t%s\t%s\n", i+1, ch.Name, ch.URL)
			}
			return nil
		},
	}

	readCmd = &cobra.Command{
		Use:   "read <chapter-url>",
		Short: "Print a chapter's text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openParser()
			if err != nil {
				return err
			}
			defer p.Close()

			text, err := p.Content(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if usePager {
				pagerCmd := os.Getenv("PAGER")
				if pagerCmd == "" {
					pagerCmd = "less -r"
				}
				pa := strings.Split(pagerCmd, " ")
				c := exec.Command(pa[0], pa[1:]...) //nolint:gosec
				c.Stdin = strings.NewReader(text)
				c.Stdout = os.Stdout
				if err := c.Run(); err != nil {
					return fmt.Errorf("unable to run pager: %w", err)
				}
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	speakCmd = &cobra.Command{
		Use:   "speak <chapter-url>",
		Short: "Read a chapter aloud",
		Args:  cobra.ExactArgs(1),
		RunE:  speak,
	}
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

func loadSources(cfg config.Config) ([]*booksource.BookSource, error) {
	if cfg.SourcesPath == "" {
		return nil, errors.New("no sources configured: set NOVELTERM_SOURCES or `sources:` in the config file")
	}
	sources, err := booksource.LoadFile(cfg.SourcesPath)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no usable sources in %s", cfg.SourcesPath)
	}
	return sources, nil
}

func openParser() (*booksource.Parser, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	sources, err := loadSources(cfg)
	if err != nil {
		return nil, err
	}

	name := sourceName
	if name == "" {
		name = cfg.Source
	}
	if name == "" {
		return booksource.NewParserSize(sources[0], cfg.CacheSize)
	}
	for _, src := range sources {
		if src.BookSourceName == name {
			return booksource.NewParserSize(src, cfg.CacheSize)
		}
	}
	return nil, fmt.Errorf("no source named %q", name)
}

func newSynthesizer(cfg config.Config) (tts.Synthesizer, error) {
	switch cfg.Engine {
	case "mock":
		return mock.New(), nil
	case "", "piper":
		e := piper.New(piper.Config{
			BinaryPath: cfg.PiperBinary,
			ModelDir:   cfg.ModelDir,
			SampleRate: cfg.SampleRate,
		})
		if !e.Available() {
			return nil, fmt.Errorf("%w: %s not found in PATH", tts.ErrEngineNotAvailable, cfg.PiperBinary)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown tts engine %q", cfg.Engine)
	}
}

func speak(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	voice := voiceName
	if voice == "" {
		voice = cfg.Voice
	}
	if voice == "" {
		voice = cfg.PiperModel
	}

	synth, err := newSynthesizer(cfg)
	if err != nil {
		return err
	}

	p, err := openParser()
	if err != nil {
		return err
	}
	defer p.Close()

	text, err := p.Content(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	chapter := tts.NewChapterFromText(text, cfg.SegmentLimit, synth)
	chapter.SetSampleRate(cfg.SampleRate)
	texts := chapter.Texts()
	if len(texts) == 0 {
		return tts.ErrNoSegments
	}
	log.Info("Speaking chapter", "segments", len(texts), "voice", voice)

	out, positions := chapter.Stream(tts.Voice(voice), func(err error) {
		log.Warn("Synthesis failed, skipping segment", "error", err)
	})
	defer chapter.Cancel()

	player, err := audio.NewPlayer(out.SampleRate(), out.Channels())
	if err != nil {
		return err
	}
	defer player.Close()
	if err := player.Play(out); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		chapter.Cancel()
		_ = player.Stop()
	}()

	for idx := range positions {
		log.Info("Speaking", "segment", idx+1, "total", len(texts), "text", preview(texts[idx]))
	}
	player.Wait()

	if ctx.Err() != nil {
		log.Debug("Playback interrupted")
	}
	return nil
}

// preview shortens a segment for log lines.
func preview(s string) string {
	r := []rune(s)
	if len(r) <= 24 {
		return s
	}
	return string(r[:24]) + "…"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.InitViper()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default novelterm.yml in the config dir)")
	rootCmd.PersistentFlags().StringVar(&sourceName, "source", "", "book source name (default: first loaded)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	searchCmd.Flags().IntVar(&page, "page", 1, "result page")
	searchCmd.Flags().IntVar(&pageSize, "page-size", 20, "results per page")
	readCmd.Flags().BoolVarP(&usePager, "pager", "p", false, "display with pager")
	speakCmd.Flags().StringVar(&voiceName, "voice", "", "voice or model name for synthesis")

	_ = viper.BindPFlag("source", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("tts.voice", speakCmd.Flags().Lookup("voice"))

	rootCmd.AddCommand(sourcesCmd, searchCmd, bookCmd, tocCmd, readCmd, speakCmd)
}
