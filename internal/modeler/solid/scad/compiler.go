package scad

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Format is an export format understood by openscad -o.
type Format string

const (
	FormatSTL Format = "stl"
	FormatOFF Format = "off"
	Format3MF Format = "3mf"
)

// Result holds the outcome of one openscad run.
type Result struct {
	Success    bool
	ScriptPath string
	OutputPath string
	Errors     []string
	Warnings   []string
	Stdout     string
	Stderr     string
}

// Compiler wraps the external openscad binary.
type Compiler struct {
	executablePath string
	outputDir      string
}

// NewCompiler resolves executable either as a path or via PATH lookup.
func NewCompiler(executable, outputDir string) (*Compiler, error) {
	exePath, err := exec.LookPath(executable)
	if err != nil {
		return nil, fmt.Errorf("openscad not found: %w", err)
	}
	absExePath, err := filepath.Abs(exePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve openscad path: %w", err)
	}

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(absOutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Compiler{
		executablePath: absExePath,
		outputDir:      absOutputDir,
	}, nil
}

// Compile writes script to <outputName>.scad and exports it in format.
// A failed openscad run is reported through Result, not as an error.
func (c *Compiler) Compile(ctx context.Context, script, outputName string, format Format) (*Result, error) {
	if format == "" {
		format = FormatSTL
	}

	scriptFile := outputName + ".scad"
	outputFile := outputName + "." + string(format)
	scriptPath := filepath.Join(c.outputDir, scriptFile)
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.executablePath, "-o", outputFile, scriptFile)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = c.outputDir

	runErr := cmd.Run()

	result := &Result{
		ScriptPath: scriptPath,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
	}

	// openscad also prints progress on stderr; only tagged lines count.
	for _, line := range strings.Split(stderr.String(), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "WARNING"):
			result.Warnings = append(result.Warnings, line)
		case strings.HasPrefix(line, "ERROR"):
			result.Errors = append(result.Errors, line)
		}
	}

	if runErr != nil {
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, runErr.Error())
		}
		return result, nil
	}

	outputPath := filepath.Join(c.outputDir, outputFile)
	if _, err := os.Stat(outputPath); err == nil {
		result.OutputPath = outputPath
	}
	result.Success = result.OutputPath != "" && len(result.Errors) == 0
	return result, nil
}

// CompileToBytes compiles and returns the exported mesh.
func (c *Compiler) CompileToBytes(ctx context.Context, script, outputName string, format Format) ([]byte, *Result, error) {
	result, err := c.Compile(ctx, script, outputName, format)
	if err != nil {
		return nil, nil, err
	}
	if !result.Success {
		return nil, result, fmt.Errorf("openscad failed: %v", result.Errors)
	}

	content, err := os.ReadFile(result.OutputPath)
	if err != nil {
		return nil, result, fmt.Errorf("failed to read output: %w", err)
	}
	return content, result, nil
}

// Cleanup removes the script and exported files of outputName.
func (c *Compiler) Cleanup(outputName string) {
	for _, ext := range []string{".scad", ".stl", ".off", ".3mf"} {
		os.Remove(filepath.Join(c.outputDir, outputName+ext))
	}
}

func (c *Compiler) OutputDir() string {
	return c.outputDir
}
