// minctest compiles every sample program with the built compiler in
// --asm-only mode and diffs the generated assembly against the
// checked-in golden .asm file next to it.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

var (
	compiler     = flag.String("compiler", "./minc", "Path to the compiler under test.")
	testFiles    = flag.String("test-files", "tests/*.mc", "Glob pattern(s) for programs to test (space-separated).")
	skipFiles    = flag.String("skip-files", "", "Files to skip (space-separated).")
	updateGolden = flag.Bool("update", false, "Rewrite the golden .asm files instead of comparing.")
	timeout      = flag.Duration("timeout", 10*time.Second, "Timeout for each compiler invocation.")
	jobs         = flag.Int("j", 4, "Number of parallel test jobs.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

type FileResult struct {
	File    string
	Status  string // PASS, FAIL, SKIP, ERROR
	Message string
	Diff    string
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	tempDir, err := os.MkdirTemp("", "minctest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		abs, err := filepath.Abs(f)
		if err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir)
			}
		}()
	}

	// Content-identical inputs produce identical assembly, so only the
	// first of each hash is compiled.
	seenHashes := make(map[uint64]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			resultsChan <- &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file: %v", err)}
			continue
		}
		hash := xxhash.Sum64(content)
		if original, seen := seenHashes[hash]; seen {
			resultsChan <- &FileResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seenHashes[hash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var results []*FileResult
	for result := range resultsChan {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })

	if printSummary(results) {
		os.Exit(1)
	}
}

func goldenPath(sourceFile string) string {
	base := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))
	return base + ".golden.asm"
}

func testFile(file, tempDir string) *FileResult {
	outBase := filepath.Join(tempDir, fmt.Sprintf("%x", xxhash.Sum64String(file)))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, *compiler, "--asm-only", "-o", outBase, file)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &FileResult{
			File:    file,
			Status:  "FAIL",
			Message: "Compiler failed",
			Diff:    stderr.String(),
		}
	}

	generated, err := os.ReadFile(outBase + ".asm")
	if err != nil {
		return &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Compiler succeeded but wrote no assembly: %v", err)}
	}

	golden := goldenPath(file)
	if *updateGolden {
		if err := os.WriteFile(golden, generated, 0644); err != nil {
			return &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to write golden file: %v", err)}
		}
		return &FileResult{File: file, Status: "PASS", Message: "Golden file updated"}
	}

	want, err := os.ReadFile(golden)
	if err != nil {
		return &FileResult{File: file, Status: "SKIP", Message: fmt.Sprintf("No golden file at %s (run with -update to create it)", golden)}
	}

	if diff := cmp.Diff(string(want), string(generated)); diff != "" {
		return &FileResult{File: file, Status: "FAIL", Message: "Assembly differs from golden file", Diff: diff}
	}
	return &FileResult{File: file, Status: "PASS", Message: "Assembly matches golden file"}
}

func printSummary(results []*FileResult) bool {
	var passed, failed, skipped, errored int
	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)
		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	return failed > 0 || errored > 0
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if seen[absFile] {
				continue
			}
			if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, absFile)
				seen[absFile] = true
			}
		}
	}
	return allFiles, nil
}
