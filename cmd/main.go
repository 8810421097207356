package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	cfgPkg "github.com/xhad/coursechat/pkg/config"
	"github.com/xhad/coursechat/pkg/llm"
	"github.com/xhad/coursechat/pkg/processor"
	"github.com/xhad/coursechat/pkg/rag"
	"github.com/xhad/coursechat/pkg/session"
	"github.com/xhad/coursechat/pkg/store"
	"github.com/xhad/coursechat/server"
)

type flags struct {
	configPath string
	docsDir    string
	serve      bool
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.docsDir, "docs", "", "Folder of course transcripts to index at startup")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP/WebSocket server instead of the chat REPL")
	flag.Parse()
	return f
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags) error {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx := context.Background()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.Embeddings.Model,
		BaseURL: cfg.Embeddings.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString:   cfg.Database.URL,
		CoursesTable: cfg.Database.CoursesTable,
		ChunksTable:  cfg.Database.ChunksTable,
		VectorDim:    cfg.Database.VectorDim,
		BatchSize:    cfg.Database.BatchSize,
		EmbedRate:    cfg.Database.EmbedRate,
		Embedder:     embedder,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	generator, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{
		Model:       cfg.Anthropic.Model,
		APIKey:      cfg.Anthropic.APIKey,
		Temperature: cfg.Anthropic.Temperature,
		MaxTokens:   cfg.Anthropic.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %v", err)
	}

	chunker, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %v", err)
	}

	system, err := rag.NewWithConfig(rag.RAGConfig{
		Generator:  generator,
		Index:      vectorStore,
		Sessions:   session.NewWithConfig(session.ManagerConfig{MaxHistory: cfg.Session.MaxHistory}),
		Chunker:    &chunker,
		MaxResults: cfg.Search.MaxResults,
	})
	if err != nil {
		return err
	}

	if f.docsDir != "" {
		color.Blue("\nIndexing course transcripts from %s\n", f.docsDir)
		courses, chunks, err := system.AddCourseFolder(ctx, f.docsDir)
		if err != nil {
			return fmt.Errorf("failed to index course folder: %v", err)
		}
		color.Green("\n✓ Indexed %d courses (%d chunks)\n", courses, chunks)
	}

	if f.serve {
		srv, err := server.NewWithConfig(server.Config{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		}, system)
		if err != nil {
			return err
		}
		return srv.Run()
	}

	return chatLoop(ctx, system)
}

func chatLoop(ctx context.Context, system *rag.RAGSystem) error {
	color.Cyan("\nAsk about your course materials (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	sessionID := ""
	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}

		spinner := getSpinner("🤖 Generating response...")
		answer, err := system.Answer(ctx, query, sessionID)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		sessionID = answer.SessionID

		assistantPrompt("Assistant: %s\n", answer.Text)
		if len(answer.Sources) > 0 {
			labels := make([]string, 0, len(answer.Sources))
			for _, src := range answer.Sources {
				if src.Link != "" {
					labels = append(labels, fmt.Sprintf("%s <%s>", src.Label, src.Link))
				} else {
					labels = append(labels, src.Label)
				}
			}
			color.Yellow("Sources: %s\n", strings.Join(labels, ", "))
		}
	}

	return scanner.Err()
}
