package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"qcatlas/pkg/domain"
)

func parseKind(raw string) (domain.EntityType, error) {
	kind, ok := domain.ParseEntityType(raw)
	if !ok {
		return "", domain.NewInvalidValue(domain.EntityType(raw), "", "unknown entity type")
	}
	return kind, nil
}

// nameField returns the JSON field --name maps to, or "" when the kind has none.
func nameField(kind domain.EntityType) string {
	switch kind {
	case domain.EntityPublication:
		return "title"
	case domain.EntityTag:
		return "value"
	case domain.EntityComputeResourceProperty, domain.EntityAlgorithmRelation, domain.EntityPatternRelation:
		return ""
	default:
		return "name"
	}
}

type createFlags struct {
	data            string
	name            string
	algorithmID     string
	computationKind string
}

// buildRecord merges the flag shortcuts over the --data JSON payload.
func buildRecord(kind domain.EntityType, f createFlags) (domain.Record, error) {
	fields := map[string]any{}
	if f.data != "" {
		if err := json.Unmarshal([]byte(f.data), &fields); err != nil {
			return nil, domain.NewInvalidValue(kind, "", fmt.Sprintf("invalid --data: %v", err))
		}
	}
	if f.name != "" {
		field := nameField(kind)
		if field == "" {
			return nil, domain.NewInvalidValue(kind, "name", "kind has no name")
		}
		fields[field] = f.name
	}
	if f.algorithmID != "" {
		fields["algorithm_id"] = f.algorithmID
	}
	if kind == domain.EntityAlgorithm || kind == domain.EntityImplementation {
		if f.computationKind != "" {
			fields["kind"] = f.computationKind
		} else if _, ok := fields["kind"]; !ok {
			fields["kind"] = string(domain.KindClassical)
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	rec, err := domain.DecodeRecord(kind, raw)
	if err != nil {
		return nil, domain.NewInvalidValue(kind, "", err.Error())
	}
	return rec, nil
}

func newCreateCmd(a *app) *cobra.Command {
	var f createFlags
	cmd := &cobra.Command{
		Use:   "create <kind>",
		Short: "Create an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			rec, err := buildRecord(kind, f)
			if err != nil {
				return err
			}
			created, _, err := a.svc.CreateRecord(cmd.Context(), rec)
			if err != nil {
				return err
			}
			return a.print(created)
		},
	}
	cmd.Flags().StringVar(&f.data, "data", "", "entity fields as a JSON object")
	cmd.Flags().StringVar(&f.name, "name", "", "name (title for publications, value for tags)")
	cmd.Flags().StringVar(&f.algorithmID, "algorithm-id", "", "owning algorithm of an implementation or pattern relation")
	cmd.Flags().StringVar(&f.computationKind, "computation-kind", "", "classical, quantum or hybrid")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Show one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			rec, err := a.svc.GetRecord(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			return a.print(rec)
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var req domain.PageRequest
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List entities of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			page, err := a.svc.ListRecords(cmd.Context(), kind, req)
			if err != nil {
				return err
			}
			return a.print(page)
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", 0, "zero-based page number")
	cmd.Flags().IntVar(&req.Size, "size", domain.DefaultPageSize, "page size")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete an entity, cascading to what it owns",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			if _, err := a.svc.Delete(cmd.Context(), kind, args[1]); err != nil {
				return err
			}
			return a.print(map[string]string{"deleted": args[1], "kind": string(kind)})
		},
	}
}

func newLinkCmd(a *app, link bool) *cobra.Command {
	use, short := "link", "Link two entities"
	if !link {
		use, short = "unlink", "Remove the link between two entities"
	}
	return &cobra.Command{
		Use:   use + " <association> <left-id> <right-id>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			assoc := domain.Association(args[0])
			var err error
			if link {
				_, err = a.svc.Link(cmd.Context(), assoc, args[1], args[2])
			} else {
				_, err = a.svc.Unlink(cmd.Context(), assoc, args[1], args[2])
			}
			if err != nil {
				return err
			}
			return a.print(domain.Link{Association: assoc, LeftID: args[1], RightID: args[2]})
		},
	}
}

func newLinkedCmd(a *app) *cobra.Command {
	var (
		reverse bool
		req     domain.PageRequest
	)
	cmd := &cobra.Command{
		Use:   "linked <association> <id>",
		Short: "List IDs linked to an entity; --reverse treats id as the right side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := domain.SideLeft
			if reverse {
				side = domain.SideRight
			}
			page, err := a.svc.Linked(cmd.Context(), domain.Association(args[0]), side, args[1], req)
			if err != nil {
				return err
			}
			return a.print(page)
		},
	}
	cmd.Flags().BoolVar(&reverse, "reverse", false, "id is on the right side of the association")
	cmd.Flags().IntVar(&req.Page, "page", 0, "zero-based page number")
	cmd.Flags().IntVar(&req.Size, "size", domain.DefaultPageSize, "page size")
	return cmd
}

type associationView struct {
	Name  domain.Association `json:"name"`
	Left  domain.EntityType  `json:"left"`
	Right domain.EntityType  `json:"right"`
}

func newAssociationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "associations",
		Short: "List the declared associations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			specs := domain.Associations()
			out := make([]associationView, 0, len(specs))
			for _, s := range specs {
				out = append(out, associationView{Name: s.Name, Left: s.Left, Right: s.Right})
			}
			return a.print(out)
		},
	}
}

func newAttachCmd(a *app) *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "attach <implementation-id> <path>",
		Short: "Attach a file to an implementation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1]) // #nosec G304 -- path supplied by the operator
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[1]))
			}
			file, err := a.svc.AttachFile(cmd.Context(), args[0], filepath.Base(args[1]), mimeType, f)
			if err != nil {
				return err
			}
			return a.print(file)
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "content type (guessed from the extension when empty)")
	return cmd
}

func newURLCmd(a *app) *cobra.Command {
	var expiry time.Duration
	cmd := &cobra.Command{
		Use:   "url <file-id>",
		Short: "Print a time-limited download URL for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.svc.FileURL(cmd.Context(), args[0], expiry)
			if err != nil {
				return err
			}
			return a.print(map[string]string{"file_id": args[0], "url": url})
		},
	}
	cmd.Flags().DurationVar(&expiry, "expiry", 15*time.Minute, "how long the URL stays valid")
	return cmd
}

func newCheckFilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-files <implementation-id>",
		Short: "Cross-check an implementation's files against stored content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.svc.CheckAttachments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.print(report); err != nil {
				return err
			}
			if !report.Consistent() {
				return fmt.Errorf("implementation %s: %d missing, %d orphaned", args[0], len(report.Missing), len(report.Orphaned))
			}
			return nil
		},
	}
}
