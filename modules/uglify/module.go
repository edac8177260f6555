package uglify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"
	jsparse "github.com/tdewolff/parse/v2/js"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

const mediaType = "application/javascript"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the options of the uglify task.
type Options struct {
	Banner           string `grid:"banner"`
	Footer           string `grid:"footer"`
	Mangle           bool   `grid:"mangle"`
	PreserveComments string `grid:"preserve_comments"`
	Report           string `grid:"report"`
}

func defaultOptions() *Options {
	return &Options{Mangle: true, PreserveComments: "none", Report: "none"}
}

func (o *Options) validate() error {
	switch o.PreserveComments {
	case "none", "some":
	default:
		return fmt.Errorf("preserve_comments must be \"none\" or \"some\", got %q", o.PreserveComments)
	}
	switch o.Report {
	case "none", "min":
	default:
		return fmt.Errorf("report must be \"none\" or \"min\", got %q", o.Report)
	}
	return nil
}

// Minify minifies src. With keep set, "/*!" comments found in src are placed
// before the minified code; otherwise every comment is dropped.
func Minify(src string, mangle, keep bool) (string, error) {
	comments, stripped, err := licenseComments(src)
	if err != nil {
		return "", err
	}

	m := minify.New()
	m.Add(mediaType, &js.Minifier{KeepVarNames: !mangle})
	out, err := m.String(mediaType, stripped)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if !keep || len(comments) == 0 {
		return out, nil
	}
	return strings.Join(comments, "\n") + "\n" + out, nil
}

// regexpAfter lists the keywords after which a "/" starts a regular
// expression rather than a division.
var regexpAfter = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// licenseComments lexes src and returns its "/*!" comments together with src
// minus those comments. Comments spanning lines are replaced by a line break
// so automatic semicolon insertion is unaffected.
func licenseComments(src string) ([]string, string, error) {
	var comments []string
	var out strings.Builder
	out.Grow(len(src))

	l := jsparse.NewLexer(parse.NewInputString(src))
	prev := ""
	for {
		tt, data := l.Next()
		if (tt == jsparse.DivToken || tt == jsparse.DivEqToken) && startsRegexp(prev) {
			tt, data = l.RegExp()
		}
		switch tt {
		case jsparse.ErrorToken:
			if err := l.Err(); err != io.EOF {
				return nil, "", err
			}
			return comments, out.String(), nil
		case jsparse.CommentToken, jsparse.CommentLineTerminatorToken:
			if bytes.HasPrefix(data, []byte("/*!")) {
				comments = append(comments, string(data))
				if tt == jsparse.CommentLineTerminatorToken {
					out.WriteByte('\n')
				} else {
					out.WriteByte(' ')
				}
				continue
			}
		case jsparse.WhitespaceToken, jsparse.LineTerminatorToken:
		default:
			prev = string(data)
		}
		out.Write(data)
	}
}

// startsRegexp reports whether a "/" following the token prev opens a
// regular expression literal.
func startsRegexp(prev string) bool {
	if prev == "" {
		return true
	}
	switch c := prev[0]; {
	case c == ')' || c == ']' || c == '}':
		return false
	case c == '_' || c == '$' || c == '#' || c == '\\' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z'):
		return regexpAfter[prev]
	case '0' <= c && c <= '9', c == '.' && len(prev) > 1,
		c == '"' || c == '\'' || c == '`' || c == '/':
		return false
	}
	return true
}

// Run is the handler for the uglify task.
func Run(ctx context.Context, tc *task.Context) error {
	logger := ctxlog.FromContext(ctx)

	opts := defaultOptions()
	if err := tc.Options(ctx, opts); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	mappings, err := tc.Files(ctx)
	if err != nil {
		return err
	}

	created := 0
	for _, m := range mappings {
		if m.Dest == "" {
			return fmt.Errorf("uglify needs a destination for %s", strings.Join(m.Patterns, ", "))
		}
		if len(m.Src) == 0 {
			tc.Console.Warn("Destination %s not written because src files were empty.", m.Dest)
			continue
		}

		sources := make([]string, 0, len(m.Src))
		for _, src := range m.Src {
			data, err := tc.Workspace.ReadFile(src)
			if err != nil {
				return err
			}
			sources = append(sources, string(data))
		}
		original := strings.Join(sources, ";\n")

		minified, err := Minify(original, opts.Mangle, opts.PreserveComments == "some")
		if err != nil {
			return fmt.Errorf("uglifying %s: %w", m.Dest, err)
		}
		out := opts.Banner + minified + opts.Footer
		if err := tc.Workspace.WriteFile(m.Dest, []byte(out)); err != nil {
			return err
		}
		created++

		logger.Debug("Minified JavaScript.", "dest", m.Dest, "sources", len(m.Src), "before", len(original), "after", len(out))
		tc.Console.Created("File", m.Dest)
		if opts.Report == "min" {
			tc.Console.Writeln("%s → %s", humanize.Bytes(uint64(len(original))), humanize.Bytes(uint64(len(out))))
		}
	}

	if created > 0 {
		tc.Console.OK("%s created.", english.Plural(created, "file", ""))
	}
	return nil
}

// Register registers the uglify task with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("uglify", &registry.RegisteredTask{
		Description: "Minify files with tdewolff/minify.",
		MultiTask:   true,
		FileTask:    true,
		NewOptions:  func() any { return defaultOptions() },
		Fn:          Run,
	})
}
