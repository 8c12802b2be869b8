package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the stored expectation for one source file.
type Golden struct {
	Hash   string    `json:"hash"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, STALE, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Golden  *Golden    `json:"golden,omitempty"`
	Actual  *Execution `json:"actual,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	checker        = flag.String("checker", "./typefighter", "Path to the typefighter binary under test.")
	checkerArgs    = flag.String("args", "--format json", "Arguments passed to the checker before the source file (space-separated).")
	generateGolden = flag.Bool("generate-golden", false, "Write golden files for the matched sources instead of comparing.")
	testFiles      = flag.String("test-files", "testdata/*.js", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each checker run.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	if *generateGolden {
		for _, file := range files {
			handleGenerateGolden(ctx, file)
		}
		return
	}

	results := runSuite(ctx, files)
	printSummary(results)
	resultsMap := writeJSONReport(results)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func getJSONPath(sourceFile, dir string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if dir != "" {
		return filepath.Join(dir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func handleGenerateGolden(ctx context.Context, sourceFile string) {
	if *verbose {
		log.Printf("Generating golden file for %s...\n", sourceFile)
	}

	fileHash, err := hashFile(sourceFile)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not hash source file %s: %v\n", cRed, cNone, sourceFile, err)
	}

	args := strings.Fields(*checkerArgs)
	result := runChecker(ctx, *checker, args, sourceFile)
	if result.TimedOut {
		log.Fatalf("%s[ERROR]%s Checker timed out on %s\n", cRed, cNone, sourceFile)
	}
	result.Duration = 0

	jsonData, err := json.MarshalIndent(Golden{Hash: fileHash, Args: args, Result: result}, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}

	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	goldenFileName := getJSONPath(sourceFile, *jsonDir)
	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
	}

	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
}

func runSuite(ctx context.Context, files []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(ctx, file)
			}
		}()
	}

	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})
	return allResults
}

func testFile(ctx context.Context, file string) *FileTestResult {
	goldenFile := getJSONPath(file, *jsonDir)
	goldenData, err := os.ReadFile(goldenFile)
	if os.IsNotExist(err) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	fileHash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
	}

	args := golden.Args
	if len(args) == 0 {
		args = strings.Fields(*checkerArgs)
	}
	actual := runChecker(ctx, *checker, args, file)
	result := compareExecutions(file, &golden, &actual, splitIgnored(*ignoreLines))
	if result.Status == "PASS" && golden.Hash != fileHash {
		result.Status = "STALE"
		result.Message = fmt.Sprintf("Output matches, but %s changed since the golden file was generated", file)
	}
	return result
}

// compareExecutions checks the exit code and both output streams of a run
// against its golden file. Durations are never compared.
func compareExecutions(file string, golden *Golden, actual *Execution, ignored []string) *FileTestResult {
	var diffs strings.Builder
	failed := false

	if actual.TimedOut {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Checker timed out", Golden: golden, Actual: actual}
	}

	want := golden.Result
	if want.ExitCode != actual.ExitCode {
		failed = true
		diffs.WriteString(fmt.Sprintf("Exit Code mismatch:\n  - Golden: %d\n  - Actual: %d\n", want.ExitCode, actual.ExitCode))
	}
	if filterOutput(want.Stdout, ignored) != filterOutput(actual.Stdout, ignored) {
		failed = true
		diffs.WriteString(fmt.Sprintf("STDOUT mismatch:\n%s", cmp.Diff(want.Stdout, actual.Stdout)))
	}
	if filterOutput(want.Stderr, ignored) != filterOutput(actual.Stderr, ignored) {
		failed = true
		diffs.WriteString(fmt.Sprintf("STDERR mismatch:\n%s", cmp.Diff(want.Stderr, actual.Stderr)))
	}

	if failed {
		return &FileTestResult{
			File:    file,
			Status:  "FAIL",
			Message: "Output or exit code mismatch",
			Diff:    diffs.String(),
			Golden:  golden,
			Actual:  actual,
		}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches golden file", Golden: golden, Actual: actual}
}

// runChecker runs the checker on one file with a timeout and captures its output
func runChecker(ctx context.Context, command string, args []string, sourceFile string) Execution {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, append(append([]string(nil), args...), sourceFile)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		execResult.TimedOut = true
		execResult.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			execResult.ExitCode = exitErr.ExitCode()
		} else {
			execResult.ExitCode = -2
			execResult.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return execResult
}

func splitIgnored(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// filterOutput removes lines containing any of the given substrings
func filterOutput(output string, ignoredSubstrings []string) string {
	if len(ignoredSubstrings) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	filteredLines := make([]string, 0, len(lines))

	for _, line := range lines {
		ignore := false
		for _, sub := range ignoredSubstrings {
			if sub != "" && strings.Contains(line, sub) {
				ignore = true
				break
			}
		}
		if !ignore {
			filteredLines = append(filteredLines, line)
		}
	}
	return strings.Join(filteredLines, "\n")
}

func printSummary(results []*FileTestResult) {
	var passed, failed, stale, skipped, errored int
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
		case "STALE":
			stale++
			fmt.Printf("  [%sSTALE%s] %s\n", cYellow, cNone, result.Message)
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
		if *verbose && result.Actual != nil {
			fmt.Printf("  checked in %s\n", result.Actual.Duration)
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Stale%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, stale, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				files = append(files, match)
			}
		}
	}
	return files, nil
}
