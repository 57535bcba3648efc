package lint

import (
	"path/filepath"
	"sort"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
)

// Options controls linter behavior.
type Options struct {
	// Quiet suppresses info and warnings, only reporting errors.
	Quiet bool
}

// Linter runs the configured rule set over scanned posts.
type Linter struct {
	cfg   *config.Config
	opts  Options
	rules []Rule
}

// New creates a linter with the standard rule set. The lint section of the
// configuration drives required fields, uid enforcement and ignore patterns.
func New(cfg *config.Config, opts Options) *Linter {
	return &Linter{
		cfg:  cfg,
		opts: opts,
		rules: []Rule{
			&FrontMatterRule{},
			&RequiredFieldsRule{Fields: cfg.Lint.RequiredFields},
			&DateRule{},
			&TaxonomyRule{},
			&UIDRule{Required: cfg.Lint.RequireUID},
			&FilenameRule{},
			&DuplicateSlugRule{},
			&LinkRule{},
		},
	}
}

// Run scans the content directory and checks every post.
func (l *Linter) Run() (*Result, error) {
	inv, err := content.Scan(l.cfg.ContentPath())
	if err != nil {
		return nil, err
	}
	return l.Check(inv), nil
}

// Check applies all rules to an already scanned inventory.
func (l *Linter) Check(inv *content.Inventory) *Result {
	t := &Target{
		Config:     l.cfg,
		Inventory:  inv,
		Duplicates: inv.DuplicateSlugs(),
	}
	result := &Result{Issues: []Issue{}}
	for i := range inv.Posts {
		post := &inv.Posts[i]
		if l.ignored(post.RelativePath) {
			continue
		}
		result.FilesTotal++
		for _, rule := range l.rules {
			if !rule.AppliesTo(post) {
				continue
			}
			for _, issue := range rule.Check(t, post) {
				if l.opts.Quiet && issue.Severity != SeverityError {
					continue
				}
				result.Issues = append(result.Issues, issue)
			}
		}
	}
	sortIssues(result.Issues)
	return result
}

// ignored matches the post path against the configured ignore globs.
func (l *Linter) ignored(relPath string) bool {
	slashed := filepath.ToSlash(relPath)
	for _, pattern := range l.cfg.Lint.Ignore {
		if ok, err := filepath.Match(pattern, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// sortIssues orders issues by file then rule so output is stable across runs.
func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}
		return issues[i].Rule < issues[j].Rule
	})
}
