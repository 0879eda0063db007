// Package graph generates DOT and Mermaid format dependency graphs from templates.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"
	"github.com/samber/lo"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeParameters includes parameter references in the graph.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Edge is a dependency of one template entry on another.
type Edge struct {
	From string
	To   string
	// GetAtt is set when the dependency reads an attribute rather than a Ref.
	GetAtt bool
}

// Edges returns the dependencies between the resources (and, with
// includeParameters, the parameters) of tmpl, sorted.
func Edges(tmpl *wetwire.Template, includeParameters bool) []Edge {
	var edges []Edge
	for name, def := range tmpl.Resources {
		getAtts := make(map[string]bool)
		collectGetAtts(def.Properties, getAtts)

		deps := append(template.References(def.Properties), def.DependsOn...)
		for _, dep := range lo.Uniq(deps) {
			_, isResource := tmpl.Resources[dep]
			_, isParam := tmpl.Parameters[dep]
			if !isResource && !(isParam && includeParameters) {
				continue
			}
			edges = append(edges, Edge{From: name, To: dep, GetAtt: getAtts[dep]})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func collectGetAtts(value any, found map[string]bool) {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v["Fn::GetAtt"]; ok {
			if name, ok := template.RefTarget(v); ok {
				found[name] = true
			}
			return
		}
		for _, val := range v {
			collectGetAtts(val, found)
		}
	case []any:
		for _, elem := range v {
			collectGetAtts(elem, found)
		}
	}
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(tmpl *wetwire.Template, w io.Writer) error {
	graph := g.buildGraph(tmpl)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(tmpl *wetwire.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(tmpl, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(tmpl *wetwire.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := lo.Keys(tmpl.Resources)
	sort.Strings(names)

	if g.ClusterByType {
		g.addClusteredNodes(graph, tmpl, names)
	} else {
		for _, name := range names {
			graph.Node(name).Label(nodeLabel(name, tmpl.Resources[name].Type))
		}
	}

	if g.IncludeParameters {
		params := lo.Keys(tmpl.Parameters)
		sort.Strings(params)
		for _, name := range params {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name)
		}
	}

	for _, edge := range Edges(tmpl, g.IncludeParameters) {
		e := graph.Edge(graph.Node(edge.From), graph.Node(edge.To))
		if edge.GetAtt {
			e.Attr("color", "blue")
		}
	}

	return graph
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, tmpl *wetwire.Template, names []string) {
	byService := lo.GroupBy(names, func(name string) string {
		return Service(tmpl.Resources[name].Type)
	})
	services := lo.Keys(byService)
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]
		parent := graph
		if len(members) > 1 {
			cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			cluster.Attr("label", service)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")
			parent = cluster
		}
		for _, name := range members {
			parent.Node(name).Label(nodeLabel(name, tmpl.Resources[name].Type))
		}
	}
}

func nodeLabel(name, cfType string) string {
	return name + "\\n[" + cfType + "]"
}

// Service extracts the service from a CloudFormation type.
// e.g., "AWS::IoT::TopicRule" -> "IoT"
func Service(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}
