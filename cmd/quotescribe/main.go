package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"quotescribe/internal"
	"quotescribe/internal/catalog"
	"quotescribe/internal/config"
	"quotescribe/internal/connectors"
	gmailconnector "quotescribe/internal/connectors/gmail"
	imapconnector "quotescribe/internal/connectors/imap"
	"quotescribe/internal/listener"
	"quotescribe/internal/logging"
	"quotescribe/internal/pipeline"
	"quotescribe/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync":
		client, err := catalog.NewClient(context.Background(), cfg)
		must(err)
		svc := catalog.NewSyncService(db, client, cfg, log)
		count, err := svc.Sync(context.Background())
		must(err)
		fmt.Printf("catalog sync complete: %d products\n", count)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg, log)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d detected=%d\n", res.EmailID, res.Detected)
			return
		}
		processedEmails, detected, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d detected=%d\n", processedEmails, detected)
	case "mail:listen":
		s := listener.NewService(db, cfg, log)
		must(s.Run(context.Background()))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		emailID := fs.Int("emailId", 0, "internal email id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *emailID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--emailId and --out are required"))
		}
		rows, err := db.GetQuoteExportRows(*emailID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no quote rows for emailId=%d", *emailID))
		}
		must(pipeline.ExportQuoteToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "classify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "text file with the email body")
		subject := fs.String("subject", "", "email subject")
		_ = fs.Parse(os.Args[2:])
		if *input == "" {
			must(fmt.Errorf("--input is required"))
		}
		body, err := os.ReadFile(*input)
		must(err)
		products, err := db.ListProducts()
		must(err)
		result := pipeline.ClassifyEmail(internal.EmailMessage{Subject: *subject, Body: string(body)}, products)
		printJSON(result)
	case "match":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		query := fs.String("query", "", "free text to match against the catalog")
		max := fs.Int("max", cfg.MaxMatchResults, "max results")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*query) == "" {
			must(fmt.Errorf("--query is required"))
		}
		products, err := db.ListProducts()
		must(err)
		matcher := pipeline.NewMatcher(cfg, products)
		printJSON(matcher.FindMatches(*query, *max))
	case "quote":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "text file with the email body")
		from := fs.String("from", "", "From header value")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *output == "" {
			must(fmt.Errorf("--input and --output are required"))
		}
		body, err := os.ReadFile(*input)
		must(err)

		patterns := pipeline.DefaultProductPatterns()
		if cfg.PatternsPath != "" {
			if loaded, err := pipeline.LoadProductPatterns(cfg.PatternsPath); err == nil {
				patterns = loaded
			}
		}
		parser := pipeline.NewMultiProductParser(patterns)
		parsed := parser.ParseEmail(internal.EmailMessage{From: *from, Body: string(body)})

		products, err := db.ListProducts()
		must(err)
		summary := pipeline.CalculateMultiProductPrice(parsed.Products, products)

		rows := make([]internal.QuoteExportRow, 0, len(summary.ItemBreakdown))
		for i, line := range summary.ItemBreakdown {
			rows = append(rows, internal.QuoteExportRow{
				LineNo:       i + 1,
				Product:      line.Product,
				Quantity:     line.Quantity,
				Confidence:   string(line.Confidence),
				UnitPrice:    line.UnitPrice,
				Subtotal:     line.Subtotal,
				GSTRate:      line.GSTRate,
				GSTAmount:    line.GSTAmount,
				Unpriced:     line.Unpriced,
				CustomerName: parsed.CustomerName,
				EmailAddress: parsed.EmailAddress,
			})
		}
		must(pipeline.ExportQuoteToXLSX(rows, *output))
		fmt.Printf("quote done lines=%d total=%.2f output=%s\n", len(rows), summary.TotalPrice, *output)
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func printJSON(v any) {
	blob, err := json.MarshalIndent(v, "", "  ")
	must(err)
	fmt.Println(string(blob))
}

func usage() {
	fmt.Println("usage: quotescribe <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --emailId=1 --out=./out/quote.xlsx")
	fmt.Println("  classify --input=body.txt [--subject=...]")
	fmt.Println("  match --query=\"a4 paper\" [--max=10]")
	fmt.Println("  quote --input=body.txt [--from=\"Name <a@b.com>\"] --output=./out/quote.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
