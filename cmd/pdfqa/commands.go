package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/pdfqa/internal/config"
	"github.com/kalambet/pdfqa/internal/ingest"
	"github.com/kalambet/pdfqa/internal/storage"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Index a PDF document",
	Long: `Upload a PDF to the running server and index it.

Examples:
  pdfqa ingest ./minutes.pdf
  pdfqa ingest ./minutes.pdf --name "Council minutes 2024" --backend sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !strings.EqualFold(filepath.Ext(args[0]), ".pdf") {
			return fmt.Errorf("%s is not a .pdf file", args[0])
		}
		name, _ := cmd.Flags().GetString("name")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runIngest(cmd.Context(), client, cmd.OutOrStdout(), args[0], name)
	},
}

func init() {
	ingestCmd.Flags().String("name", "", "document name (defaults to the file name)")
}

type ingestResponse struct {
	Backend string        `json:"backend"`
	Result  ingest.Result `json:"result"`
}

func runIngest(ctx context.Context, client *apiClient, w io.Writer, filePath, name string) error {
	printStep("Indexing %s", filePath)
	resp, err := client.upload(ctx, filePath, name)
	if err != nil {
		return err
	}
	var out ingestResponse
	if err := decodeJSON(resp, &out); err != nil {
		if isStatus(err, http.StatusConflict) {
			if name == "" {
				name = filepath.Base(filePath)
			}
			return fmt.Errorf("%w; run \"pdfqa docs delete %s\" to replace it", err, name)
		}
		return err
	}

	r := out.Result
	printSuccess("Stored %d chunks of %s in %s", r.Chunks, r.DocumentName, out.Backend)
	if r.Failed > 0 {
		printWarning("%d chunks could not be embedded and were skipped", r.Failed)
	}
	if r.Chunks == 0 {
		printWarning("no text could be extracted from %s", filePath)
	}
	printStatus(w, "Pages with text", "%d", r.Sections)
	printStatus(w, "Metadata chunk", "%t", r.MetadataChunk)
	return nil
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("lang")
		k, _ := cmd.Flags().GetInt("k")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAsk(cmd.Context(), client, cmd.OutOrStdout(), strings.Join(args, " "), lang, k)
	},
}

func init() {
	askCmd.Flags().String("lang", "", "answer language (default from config)")
	askCmd.Flags().Int("k", 0, "number of chunks to retrieve (default from config)")
}

func runAsk(ctx context.Context, client *apiClient, w io.Writer, question, lang string, k int) error {
	resp, err := client.post(ctx, "/ask", map[string]any{
		"question": question,
		"language": lang,
		"k":        k,
	})
	if err != nil {
		return err
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}
	fmt.Fprintln(w, out.Answer)
	return nil
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List or delete indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents with their chunk counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runDocsList(cmd.Context(), client, cmd.OutOrStdout())
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove every chunk of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runDocsDelete(cmd.Context(), client, args[0])
	},
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}

func runDocsList(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, "/documents", nil)
	if err != nil {
		return err
	}
	var docs []vectorstore.DocumentCount
	if err := decodeJSON(resp, &docs); err != nil {
		return err
	}
	if len(docs) == 0 {
		printWarning("no documents indexed")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tCHUNKS")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\n", d.Name, d.Chunks)
	}
	return tw.Flush()
}

func runDocsDelete(ctx context.Context, client *apiClient, name string) error {
	resp, err := client.delete(ctx, "/documents/"+url.PathEscape(name))
	if err != nil {
		return err
	}
	var out struct {
		Removed int `json:"removed"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		if isStatus(err, http.StatusNotImplemented) {
			printWarning("this backend cannot delete documents; use --backend dict or sqlite")
			return nil
		}
		return err
	}
	if out.Removed == 0 {
		printWarning("no chunks found for %s", name)
		return nil
	}
	printSuccess("Removed %d chunks of %s", out.Removed, name)
	return nil
}

// --- store ---

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the vector store",
}

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show chunk and document counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runStoreInfo(cmd.Context(), client, cmd.OutOrStdout())
	},
}

var storeChunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Print the first stored chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runStoreChunks(cmd.Context(), client, cmd.OutOrStdout(), limit)
	},
}

func init() {
	storeChunksCmd.Flags().Int("limit", 10, "number of chunks to print (max 100)")
	storeCmd.AddCommand(storeInfoCmd)
	storeCmd.AddCommand(storeChunksCmd)
}

func runStoreInfo(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, "/store/info", nil)
	if err != nil {
		return err
	}
	var out struct {
		Backend string           `json:"backend"`
		Info    vectorstore.Info `json:"info"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}

	printStatus(w, "Backend", "%s", out.Backend)
	printStatus(w, "Documents", "%d", out.Info.Documents)
	printStatus(w, "Chunks", "%d", out.Info.Chunks)
	if out.Info.Chunks > 0 {
		printStatus(w, "First insert", "%s", out.Info.MinInsertDate.Local().Format(time.DateTime))
		printStatus(w, "Last insert", "%s", out.Info.MaxInsertDate.Local().Format(time.DateTime))
	}
	return nil
}

func runStoreChunks(ctx context.Context, client *apiClient, w io.Writer, limit int) error {
	resp, err := client.get(ctx, "/store/chunks", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		return err
	}
	var chunks []vectorstore.ChunkView
	if err := decodeJSON(resp, &chunks); err != nil {
		return err
	}
	for i, c := range chunks {
		fmt.Fprintf(w, "%s [%s] %s\n", labelColor.Sprintf("#%d", i+1), c.Kind, c.DocumentName)
		fmt.Fprintln(w, truncate(c.Text, 300))
		fmt.Fprintln(w)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// --- feedback ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and review answer ratings",
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add <question> <response> <rating>",
	Short: "Rate an answer (positive, negative, off_topic)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := storage.ParseRating(args[2]); err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runFeedbackAdd(cmd.Context(), client, args[0], args[1], args[2])
	},
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feedback, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runFeedbackList(cmd.Context(), client, cmd.OutOrStdout())
	},
}

var feedbackClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runFeedbackClear(cmd.Context(), client)
	},
}

func init() {
	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackClearCmd)
}

func runFeedbackAdd(ctx context.Context, client *apiClient, question, response, rating string) error {
	resp, err := client.post(ctx, "/feedback", map[string]string{
		"question": question,
		"response": response,
		"rating":   rating,
	})
	if err != nil {
		return err
	}
	var out struct {
		ID     int64          `json:"id"`
		Rating storage.Rating `json:"rating"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}
	printSuccess("Saved feedback #%d (%s)", out.ID, out.Rating)
	return nil
}

func runFeedbackList(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, "/feedback", nil)
	if err != nil {
		return err
	}
	var records []storage.Feedback
	if err := decodeJSON(resp, &records); err != nil {
		return err
	}
	if len(records) == 0 {
		printWarning("no feedback recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRATING\tQUESTION")
	for _, f := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", f.ID, f.Rating, truncate(f.Question, 60))
	}
	return tw.Flush()
}

func runFeedbackClear(ctx context.Context, client *apiClient) error {
	resp, err := client.delete(ctx, "/feedback")
	if err != nil {
		return err
	}
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}
	printSuccess("Deleted %d feedback records", out.Deleted)
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return runConfigShow(cmd.OutOrStdout(), cfg, asJSON)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a key to the config file",
	Long:  "Write a key to the config file. Valid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.SetKey(path, args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s = %s in %s", args[0], args[1], path)
		return nil
	},
}

func init() {
	configShowCmd.Flags().Bool("json", false, "print as JSON")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(w io.Writer, cfg config.Config, asJSON bool) error {
	keys := config.ShowAll(cfg)
	if asJSON {
		m := make(map[string]string, len(keys))
		for _, k := range keys {
			m[k.Key] = k.Value
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tENV")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Key, k.Value, k.EnvVar)
	}
	return tw.Flush()
}
