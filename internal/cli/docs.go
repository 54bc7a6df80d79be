package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowgraph/internal/document"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/store"
)

// DocsOptions holds flags shared by the docs subcommands.
type DocsOptions struct {
	*RootOptions
	Model string // schema model the documents are instances of
	Set   []string
	Unset []string
}

// NewDocsCommand creates the docs command and its subcommands.
func NewDocsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DocsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Read and write stored documents",
		Long: `Manage JSON documents kept in named collections.

Updates are written as minimal diffs: only the fields that changed are
touched, so fields written by other tools survive.

Examples:
  rowgraph docs list settings
  rowgraph docs get settings 0190...
  rowgraph docs put settings --set theme=dark --set limits.max=10
  rowgraph docs put settings 0190... --unset limits
  rowgraph docs rm settings 0190...`,
	}
	cmd.PersistentFlags().StringVar(&opts.Model, "model", "", "schema model the documents follow")

	put := &cobra.Command{
		Use:           "put <collection> [id]",
		Short:         "Create or update a document",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runDocsPut(opts, args[0], id, cmd)
		},
	}
	put.Flags().StringArrayVar(&opts.Set, "set", nil, "assign path=value (repeatable)")
	put.Flags().StringArrayVar(&opts.Unset, "unset", nil, "remove path (repeatable)")

	cmd.AddCommand(
		&cobra.Command{
			Use:           "list <collection>",
			Short:         "List the documents of a collection",
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDocsList(opts, args[0], cmd)
			},
		},
		&cobra.Command{
			Use:           "get <collection> <id>",
			Short:         "Print one document",
			Args:          cobra.ExactArgs(2),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDocsGet(opts, args[0], args[1], cmd)
			},
		},
		put,
		&cobra.Command{
			Use:           "rm <collection> <id>",
			Short:         "Delete a document",
			Args:          cobra.ExactArgs(2),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDocsRm(opts, args[0], args[1], cmd)
			},
		},
	)
	return cmd
}

// resolveModel looks up --model in the schema. Without --model documents
// are schemaless and keyed by "id".
func (o *DocsOptions) resolveModel() (model.Model, error) {
	if o.Model == "" {
		return nil, nil
	}
	reg, err := loadRegistry(o.RootOptions)
	if err != nil {
		return nil, err
	}
	def, ok := reg.Model(o.Model)
	if !ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown model %q", o.Model))
	}
	return def, nil
}

// openDocs resolves the model and opens the store.
func (o *DocsOptions) openDocs(cmd *cobra.Command) (model.Model, *store.Store, error) {
	m, err := o.resolveModel()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(o.RootOptions, newLogger(o.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return nil, nil, err
	}
	return m, st, nil
}

func runDocsList(opts *DocsOptions, name string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	m, st, err := opts.openDocs(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := st.Documents(cmd.Context(), m, name)
	if err != nil {
		return documentFailure(f, err)
	}
	defer docs.Close()

	items, err := docs.To(document.FormatArray, document.ToOptions{})
	if err != nil {
		return documentFailure(f, err)
	}
	if f.JSON() {
		return f.Success(items)
	}
	for _, item := range items.([]any) {
		if err := f.Canonical(ir.FromNative(item)); err != nil {
			return err
		}
	}
	return nil
}

func runDocsGet(opts *DocsOptions, name, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	m, st, err := opts.openDocs(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.FindDocument(cmd.Context(), m, name, id)
	if err != nil {
		return documentFailure(f, err)
	}
	return outputDocument(f, doc)
}

func runDocsPut(opts *DocsOptions, name, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if len(opts.Set) == 0 && len(opts.Unset) == 0 && id == "" {
		return NewExitError(ExitCommandError, "nothing to write: pass --set or --unset")
	}
	m, st, err := opts.openDocs(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	var doc *document.Document
	if id != "" {
		doc, err = st.FindDocument(cmd.Context(), m, name, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			doc = document.New(m, map[string]any{store.DocumentKeyField(m): id})
		case err != nil:
			return documentFailure(f, err)
		}
	} else {
		doc = document.New(m, nil)
	}

	for _, s := range opts.Set {
		path, value, err := parseAssignment(s)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --set", err)
		}
		if err := doc.Set(path, value); err != nil {
			return WrapExitError(ExitCommandError, "invalid --set", err)
		}
	}
	for _, path := range opts.Unset {
		if !doc.Unset(path) {
			f.VerboseLog("unset %s: no such field", path)
		}
	}

	if err := st.SaveDocument(cmd.Context(), name, doc); err != nil {
		return documentFailure(f, err)
	}
	return outputDocument(f, doc)
}

func runDocsRm(opts *DocsOptions, name, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	st, err := openStore(opts.RootOptions, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteDocument(cmd.Context(), name, id); err != nil {
		return documentFailure(f, err)
	}
	if f.JSON() {
		return f.Success(map[string]any{"deleted": id})
	}
	fmt.Fprintf(f.Writer, "✓ Deleted %s/%s\n", name, id)
	return nil
}

// outputDocument prints doc with its id in the key field. Schemaless
// documents carry their id only as the document key.
func outputDocument(f *OutputFormatter, doc *document.Document) error {
	v, err := doc.To(document.FormatArray, document.ToOptions{})
	if err != nil {
		return documentFailure(f, err)
	}
	fields := v.(map[string]any)
	kf := store.DocumentKeyField(doc.Model())
	if _, ok := fields[kf]; !ok && !doc.Key().IsZero() {
		fields[kf] = ir.Native(doc.Key().Value())
	}
	if f.JSON() {
		return f.Success(fields)
	}
	return f.Canonical(ir.FromNative(fields))
}

// documentFailure reports a store error. A missing document is a failure
// (exit 1); anything else is a command error.
func documentFailure(f *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ErrCodeNotFound, ExitFailure, "document not found", err)
	}
	return f.Fail(ErrCodeDocument, ExitCommandError, "document operation failed", err)
}
