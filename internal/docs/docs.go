// Package docs checks the integrity of the project README: referenced images
// exist, external links resolve and the team roster is complete.
package docs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rsx/cansat-groundstation/internal/log"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 10 * time.Second
)

// Issue kinds
const (
	KindImage  = "image"
	KindLink   = "link"
	KindRoster = "roster"
)

// Options configures a Check
type Options struct {
	// Client performs link checks; a client with Timeout is used when nil
	Client *http.Client
	// Concurrency bounds parallel link checks
	Concurrency int
	Timeout     time.Duration
	// Offline skips external link checks
	Offline bool
}

// RosterEntry is one team member listed in the README
type RosterEntry struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Issue is one failed check
type Issue struct {
	Kind    string `json:"kind"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Kind, i.Target, i.Message)
}

// Report is the result of checking one README
type Report struct {
	README string        `json:"readme"`
	Images []string      `json:"images"`
	Links  []string      `json:"links"`
	Roster []RosterEntry `json:"roster"`
	Issues []Issue       `json:"issues"`
}

// OK reports whether every check passed
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// WriteText writes a human readable summary
func (r *Report) WriteText(w io.Writer) error {
	status := "OK"
	if !r.OK() {
		status = fmt.Sprintf("%d issue(s)", len(r.Issues))
	}
	if _, err := fmt.Fprintf(w, "%s: %d image(s), %d link(s), %d roster entr(ies): %s\n",
		r.README, len(r.Images), len(r.Links), len(r.Roster), status); err != nil {
		return err
	}
	for _, issue := range r.Issues {
		if _, err := fmt.Fprintf(w, "  %s\n", issue); err != nil {
			return err
		}
	}
	return nil
}

// Check parses the README at path and runs every integrity check
func Check(ctx context.Context, path string, opts Options) (*Report, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read readme: %w", err)
	}

	doc := parse(src)
	report := &Report{
		README: path,
		Images: doc.images,
		Links:  doc.links,
		Roster: doc.roster,
	}
	base := filepath.Dir(path)

	var external []string
	for _, img := range doc.images {
		if isExternal(img) {
			external = append(external, img)
			continue
		}
		if issue, bad := checkLocal(base, img, KindImage); bad {
			report.Issues = append(report.Issues, issue)
		}
	}

	for _, link := range doc.links {
		switch {
		case isExternal(link):
			external = append(external, link)
		case skipLink(link):
		default:
			if issue, bad := checkLocal(base, link, KindLink); bad {
				report.Issues = append(report.Issues, issue)
			}
		}
	}

	report.Issues = append(report.Issues, checkRoster(doc)...)

	if !opts.Offline && len(external) > 0 {
		issues, err := newLinkChecker(opts).check(ctx, external)
		if err != nil {
			return nil, err
		}
		report.Issues = append(report.Issues, issues...)
	}

	logger := log.WithComponent("docs")
	logger.Debug().
		Str("readme", path).
		Int("images", len(report.Images)).
		Int("links", len(report.Links)).
		Int("issues", len(report.Issues)).
		Msg("readme checked")
	return report, nil
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// skipLink reports references that do not name a file: anchors, mail and
// other schemes
func skipLink(ref string) bool {
	if strings.HasPrefix(ref, "#") {
		return true
	}
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != ""
}

// checkLocal resolves ref relative to the README directory
func checkLocal(base, ref, kind string) (Issue, bool) {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	if p == "" {
		return Issue{}, false
	}
	full := filepath.Join(base, filepath.FromSlash(p))
	if _, err := os.Stat(full); err != nil {
		return Issue{Kind: kind, Target: ref, Message: "file not found"}, true
	}
	return Issue{}, false
}

func checkRoster(doc *document) []Issue {
	if !doc.rosterFound {
		return []Issue{{Kind: KindRoster, Target: "README", Message: "no team section found"}}
	}
	if len(doc.roster) == 0 {
		return []Issue{{Kind: KindRoster, Target: "README", Message: "team roster is empty"}}
	}
	var issues []Issue
	for i, e := range doc.roster {
		target := e.Name
		if target == "" {
			target = fmt.Sprintf("entry %d", i+1)
		}
		switch {
		case e.Name == "":
			issues = append(issues, Issue{Kind: KindRoster, Target: target, Message: "missing name"})
		case e.Role == "":
			issues = append(issues, Issue{Kind: KindRoster, Target: target, Message: "missing role"})
		}
	}
	return issues
}
