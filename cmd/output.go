package cmd

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabinsight/internal/profile"
	"github.com/KaramelBytes/tabinsight/internal/utils"
)

func checkFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json", "yaml", "yml", "markdown", "md":
		return nil
	}
	return fmt.Errorf("unsupported --format: %s (use json|yaml|markdown)", format)
}

// renderReport encodes rep as json, yaml or markdown.
func renderReport(rep *profile.Report, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return utils.PrettyJSON(rep)
	case "yaml", "yml":
		return reportYAML(rep)
	case "markdown", "md":
		return []byte(rep.Markdown()), nil
	}
	return nil, checkFormat(format)
}

// reportYAML goes through the JSON encoding so both formats share field
// names and order, then switches every collection to block style.
func reportYAML(rep *profile.Report) ([]byte, error) {
	js, err := utils.PrettyJSON(rep)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(js, &doc); err != nil {
		return nil, fmt.Errorf("convert report to yaml: %w", err)
	}
	blockStyle(&doc)
	b, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}

func blockStyle(n *yaml.Node) {
	switch {
	case n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode:
		n.Style &^= yaml.FlowStyle
	case n.Kind == yaml.ScalarNode && n.Tag == "!!str":
		// the encoder re-quotes strings that would otherwise read as another type
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func reportExt(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		return ".report.yaml"
	case "markdown", "md":
		return ".report.md"
	}
	return ".report.json"
}

// emit writes data to path, or to w when path is empty.
func emit(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(w, "✓ Wrote report to %s\n", path)
	return nil
}
