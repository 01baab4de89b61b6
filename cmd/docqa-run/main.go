// Command docqa-run is the batch pipeline: ingest the given documents,
// answer a list of questions and print the results as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"docqa/internal/app"
	"docqa/internal/domain"
	"docqa/internal/logger"
	"docqa/internal/vectorstore"
)

type output struct {
	Question   string             `json:"question"`
	Answer     string             `json:"answer"`
	Confidence float64            `json:"confidence"`
	Sources    []domain.SourceRef `json:"sources,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	questionsPath := flag.String("questions", "", "file with one question per line (default: remaining args after documents)")
	parallel := flag.Int("parallel", 4, "maximum questions answered concurrently")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	mode := "prod"
	if *verbose {
		mode = "dev"
	}
	log, err := logger.New(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, *configPath, *questionsPath, *parallel, flag.Args()); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger, configPath, questionsPath string, parallel int, args []string) error {
	cfg, _, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.Build(log, cfg)
	if err != nil {
		return err
	}
	if err := svc.LoadIndex(cfg.Index.Path); err != nil && !errors.Is(err, vectorstore.ErrSnapshotMismatch) {
		return fmt.Errorf("load index: %w", err)
	}

	// Without -questions, args split on the first question-looking entry:
	// documents are paths or URLs, questions are everything else.
	var docs, questions []string
	if questionsPath != "" {
		docs = args
		questions, err = readQuestions(questionsPath)
		if err != nil {
			return err
		}
	} else {
		for _, a := range args {
			if isDocument(a) && len(questions) == 0 {
				docs = append(docs, a)
			} else {
				questions = append(questions, a)
			}
		}
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions given")
	}

	ctx := context.Background()
	for _, d := range docs {
		var ingestErr error
		if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
			_, ingestErr = svc.IngestURL(ctx, d)
		} else {
			_, ingestErr = svc.IngestFile(ctx, d)
		}
		if ingestErr != nil {
			return fmt.Errorf("ingest %s: %w", d, ingestErr)
		}
	}

	answers, err := svc.AnswerAll(ctx, questions, parallel)
	if err != nil {
		return err
	}

	out := struct {
		Answers []output `json:"answers"`
	}{Answers: make([]output, len(answers))}
	for i, a := range answers {
		out.Answers[i] = output{
			Question:   questions[i],
			Answer:     a.Text,
			Confidence: a.Confidence,
			Sources:    a.Sources,
			Reasoning:  a.Reasoning,
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	defer f.Close()
	var questions []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	return questions, nil
}

// isDocument treats URLs and existing file paths as documents to ingest.
func isDocument(arg string) bool {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return true
	}
	_, err := os.Stat(arg)
	return err == nil
}
