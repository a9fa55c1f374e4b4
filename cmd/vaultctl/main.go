package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"vaultapi/internal/autosave"
	"vaultapi/internal/client"
	"vaultapi/internal/config"
	"vaultapi/internal/http/middleware"
	"vaultapi/internal/model"
	"vaultapi/internal/transfer"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient builds an API client from the persistent flags, falling back to
// VAULT_URL, VAULT_TOKEN and VAULT_TENANT.
func newClient(cmd *cobra.Command) *client.Client {
	baseURL, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	tenant, _ := cmd.Flags().GetString("tenant")
	header, _ := cmd.Flags().GetString("tenant-header")

	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	if tenant != "" {
		opts = append(opts, client.WithTenantHeader(header, tenant))
	}
	return client.New(baseURL, opts...)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

var rootCmd = &cobra.Command{
	Use:          "vaultctl",
	Short:        "Command-line client for the vault API",
	SilenceUsage: true,
}

// notes command
var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		notes, err := newClient(cmd).ListNotes(ctx)
		if err != nil {
			return fmt.Errorf("listing notes: %w", err)
		}
		if len(notes) == 0 {
			fmt.Println("No notes.")
			return nil
		}
		for _, n := range notes {
			fmt.Printf("%-36s  %-24s  %6d  %s\n", n.ID, deref(n.UpdatedAt), n.Size, n.Title)
		}
		return nil
	},
}

var notesGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		note, err := newClient(cmd).GetNote(ctx, args[0])
		if err != nil {
			return fmt.Errorf("reading note: %w", err)
		}
		fmt.Printf("# %s  (updated %s)\n\n%s\n", note.Title, note.UpdatedAt, note.Content)
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := newClient(cmd).DeleteNote(ctx, args[0]); err != nil {
			return fmt.Errorf("deleting note: %w", err)
		}
		fmt.Printf("Deleted note %s\n", args[0])
		return nil
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Append stdin lines to a note, autosaving as you type",
	Long: "Reads lines from stdin and appends them to the note. Edits are saved after a quiet\n" +
		"period; end of input flushes any pending change before exiting.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient(cmd)
		id := args[0]

		content := ""
		note, err := c.GetNote(ctx, id)
		switch {
		case err == nil:
			content = note.Content
		case client.IsNotFound(err):
		default:
			return fmt.Errorf("reading note: %w", err)
		}

		session := autosave.New[string, *model.Note](func(ctx context.Context, text string) (*model.Note, error) {
			return c.SaveNote(ctx, id, text)
		}, autosave.WithDebounce(debounce), autosave.WithContext(ctx))
		defer session.Close()
		session.Load(content)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if content != "" {
				content += "\n"
			}
			content += scanner.Text()
			session.Edit(content)
			fmt.Fprintf(os.Stderr, "[%s]\n", session.Status().State)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}

		if err := session.OnNavigateAway(ctx); err != nil {
			return fmt.Errorf("saving note: %w", err)
		}
		st := session.Status()
		if st.Result != nil {
			fmt.Printf("Saved %q at %s\n", st.Result.Title, st.Result.UpdatedAt)
		}
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage stored files",
}

var filesListCmd = &cobra.Command{
	Use:   "list [FOLDER]",
	Short: "List a folder (default Documents, __all__ for everything)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		folder := ""
		if len(args) > 0 {
			folder = args[0]
		}
		list, err := newClient(cmd).ListFiles(ctx, folder)
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}

		for _, f := range list.Folders {
			fmt.Printf("%-10s  %s/\n", "dir", f.Name)
		}
		for _, it := range list.Items {
			name := it.Name
			if it.Path != nil && *it.Path != "" {
				name = *it.Path + "/" + it.Name
			}
			modified := "-"
			if it.LastModified != nil {
				modified = it.LastModified.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%10d  %s  %s\n", it.Size, modified, name)
		}
		if list.Truncated {
			fmt.Println("(listing truncated)")
		}
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload PATH",
	Short: "Upload a local file through a presigned URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		contentType, _ := cmd.Flags().GetString("content-type")
		ctx, cancel := commandContext(cmd)
		defer cancel()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		name := filepath.Base(args[0])
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(name))
		}

		c := newClient(cmd)
		ticket, err := c.PresignUpload(ctx, folder, name, contentType)
		if err != nil {
			return fmt.Errorf("requesting upload url: %w", err)
		}

		started := time.Now()
		err = c.Upload(ctx, *ticket, f, info.Size(), func(sent, total int64) {
			if total > 0 {
				fmt.Fprintf(os.Stderr, "\r%3d%%", sent*100/total)
			}
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("uploading: %w", err)
		}

		fmt.Printf("Uploaded %s (%d bytes) in %s\n", ticket.Key, info.Size(), time.Since(started).Truncate(time.Millisecond))
		return nil
	},
}

var filesURLCmd = &cobra.Command{
	Use:   "url KEY",
	Short: "Print a presigned download URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		download, _ := cmd.Flags().GetBool("download")
		ctx, cancel := commandContext(cmd)
		defer cancel()

		disposition := transfer.Inline
		if download {
			disposition = transfer.Attachment
		}
		ticket, err := newClient(cmd).PresignDownload(ctx, args[0], disposition)
		if err != nil {
			return fmt.Errorf("requesting download url: %w", err)
		}
		fmt.Println(ticket.URL)
		fmt.Fprintf(os.Stderr, "expires in %ds\n", ticket.ExpiresInSeconds)
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Delete a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		key, err := newClient(cmd).DeleteFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("deleting file: %w", err)
		}
		fmt.Printf("Deleted %s\n", key)
		return nil
	},
}

// contacts command
var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage the contact book",
}

var contactsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the contact book",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		book, err := newClient(cmd).GetContacts(ctx)
		if err != nil {
			return fmt.Errorf("reading contacts: %w", err)
		}
		if len(book.Contacts) == 0 {
			fmt.Println("No contacts.")
			return nil
		}
		for _, ct := range book.Contacts {
			fmt.Printf("%-24s  %-16s  %-16s  %s\n", ct.FullName, ct.Role, ct.Phone, ct.Email)
		}
		fmt.Printf("\nUpdated %s\n", deref(book.UpdatedAt))
		return nil
	},
}

// tour command
var tourCmd = &cobra.Command{
	Use:   "tour",
	Short: "Welcome tour state",
}

var tourStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the welcome tour was seen",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		st, err := newClient(cmd).TourStatus(ctx)
		if err != nil {
			return fmt.Errorf("reading tour status: %w", err)
		}
		fmt.Printf("seen=%t version=%d required=%d completed=%s\n", st.Seen, st.Version, st.RequiredVersion, deref(st.CompletedAt))
		return nil
	},
}

var tourDoneCmd = &cobra.Command{
	Use:   "done",
	Short: "Mark the welcome tour completed (or skipped with --skip)",
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetBool("skip")
		ctx, cancel := commandContext(cmd)
		defer cancel()

		action := "completed"
		if skip {
			action = "skipped"
		}
		st, err := newClient(cmd).MarkTour(ctx, action)
		if err != nil {
			return fmt.Errorf("updating tour: %w", err)
		}
		fmt.Printf("Tour %s (version %d) at %s\n", action, st.Version, deref(st.CompletedAt))
		return nil
	},
}

// token command
var tokenCmd = &cobra.Command{
	Use:   "token TENANT",
	Short: "Mint an HS256 token for local development",
	Long:  "Signs a token whose subject is TENANT with AUTH_JWT_SECRET and AUTH_JWT_ISSUER from the environment.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg := config.Load()
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is not set")
		}
		tenant := strings.TrimSpace(args[0])
		if tenant == "" {
			return fmt.Errorf("tenant is empty")
		}

		tok, err := middleware.IssueToken(tenant, []byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, ttl)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("url", os.Getenv("VAULT_URL"), "API base URL (default http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().String("token", os.Getenv("VAULT_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().String("tenant", os.Getenv("VAULT_TENANT"), "Tenant id for servers in header auth mode")
	rootCmd.PersistentFlags().String("tenant-header", "X-Tenant-ID", "Header carrying --tenant")

	// notes subcommands
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesGetCmd)
	notesCmd.AddCommand(notesDeleteCmd)
	notesCmd.AddCommand(notesEditCmd)
	notesEditCmd.Flags().Duration("debounce", autosave.DefaultDebounce, "Quiet period before an edit is saved")

	// files subcommands
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesUploadCmd)
	filesUploadCmd.Flags().StringP("folder", "f", "Documents", "Destination folder")
	filesUploadCmd.Flags().String("content-type", "", "Content type (guessed from the extension when empty)")
	filesCmd.AddCommand(filesURLCmd)
	filesURLCmd.Flags().BoolP("download", "d", false, "Ask the browser to save instead of display")
	filesCmd.AddCommand(filesDeleteCmd)

	contactsCmd.AddCommand(contactsGetCmd)

	tourCmd.AddCommand(tourStatusCmd)
	tourCmd.AddCommand(tourDoneCmd)
	tourDoneCmd.Flags().Bool("skip", false, "Record the tour as skipped")

	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime (0 for no expiry)")

	// root commands
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(tourCmd)
	rootCmd.AddCommand(tokenCmd)
}
