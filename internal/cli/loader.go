package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reflow/internal/compiler"
	"github.com/roach88/reflow/internal/ir"
)

// LoadMode controls error handling while compiling specs.
type LoadMode int

const (
	// LoadModeFailFast stops at the first compile error.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll gathers every compile error before returning.
	LoadModeCollectAll
)

// LoadResult is the outcome of loading a specs directory.
type LoadResult struct {
	Trees     []*ir.TreeSpec
	CUEValue  cue.Value // raw value, for callers that need more than trees
	FileCount int
}

// LoadError is a spec-loading failure with an error code and, when the
// CUE evaluator provides one, a source position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if !e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
}

// Load error codes, shared by every command that reads specs.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"
	ErrCodeNoTrees     = "E007"
)

func loadFailure(code, format string, args ...any) []error {
	return []error{&LoadError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// LoadSpecs compiles every tree definition found under the top-level
// "tree" label of the CUE package in dir.
//
// A nil result means loading itself failed (bad path, unparseable CUE);
// a non-nil result with errors means individual trees failed to
// compile.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	switch info, err := os.Stat(dir); {
	case os.IsNotExist(err):
		return nil, loadFailure(ErrCodeNotFound, "specs directory not found: %s", dir)
	case err != nil:
		return nil, loadFailure(ErrCodeNotFound, "error accessing specs directory: %v", err)
	case !info.IsDir():
		return nil, loadFailure(ErrCodeNotFound, "not a directory: %s", dir)
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, loadFailure(ErrCodeScanError, "error scanning directory: %v", err)
	}
	if len(cueFiles) == 0 {
		return nil, loadFailure(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, loadFailure(ErrCodeLoadFailed, "no CUE instances loaded")
	}
	if instances[0].Err != nil {
		return nil, loadFailure(ErrCodeLoadFailed, "loading CUE files: %v", instances[0].Err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, loadFailure(ErrCodeBuildFailed, "building CUE value: %v", err)
	}

	result := &LoadResult{CUEValue: value, FileCount: len(cueFiles)}
	var errs []error

	if trees := value.LookupPath(cue.ParsePath("tree")); trees.Exists() {
		iter, iterErr := trees.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating trees: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		}
		for iterErr == nil && iter.Next() {
			spec, compileErr := compiler.CompileTree(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "tree."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Trees = append(result.Trees, spec)
		}
	}

	if len(result.Trees) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoTrees, Message: "no tree definitions found in specs"})
	}
	return result, errs
}

// FindCUEFiles returns every .cue file under dir, recursively.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError lifts a compiler error into a LoadError, keeping
// the CUE position when the compiler recorded one.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{Code: ErrCodeBuildFailed, Message: compileErr.Message, Pos: compileErr.Pos}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", context, err)}
}

// findTree picks the named tree from a load result, or the sole tree
// when name is empty.
func findTree(result *LoadResult, name string) (*ir.TreeSpec, error) {
	if name == "" {
		if len(result.Trees) != 1 {
			names := make([]string, len(result.Trees))
			for i, t := range result.Trees {
				names[i] = t.Name
			}
			return nil, fmt.Errorf("multiple trees defined %v, pick one with --tree", names)
		}
		return result.Trees[0], nil
	}
	for _, t := range result.Trees {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tree %q not found in specs", name)
}
