package template_test

import (
	"fmt"
	"testing"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/fleet"
	"github.com/lex00/wetwire-fleet-go/internal/template"
)

// BenchmarkBuildFleet benchmarks declaring and building the fleet stack.
func BenchmarkBuildFleet(b *testing.B) {
	configs := map[string]fleet.Config{
		"default": fleet.Default(),
		"dead_letter": func() fleet.Config {
			cfg := fleet.Default()
			cfg.DeadLetter.Enabled = true
			cfg.Retry.Enabled = true
			return cfg
		}(),
	}

	for name, cfg := range configs {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := fleet.Build(cfg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSerialize benchmarks JSON and YAML output of the fleet template.
func BenchmarkSerialize(b *testing.B) {
	tmpl, err := fleet.Build(fleet.Default())
	if err != nil {
		b.Fatal(err)
	}

	b.Run("json", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := template.ToJSON(tmpl); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("yaml", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := template.ToYAML(tmpl); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkTopologicalSort benchmarks dependency ordering of queue chains.
func BenchmarkTopologicalSort(b *testing.B) {
	for _, size := range []int{20, 50, 100} {
		b.Run(fmt.Sprintf("resources_%d", size), func(b *testing.B) {
			resources := make(map[string]wetwire.DiscoveredResource, size)
			for i := 0; i < size; i++ {
				name := fmt.Sprintf("Queue%d", i)
				res := wetwire.DiscoveredResource{
					Name:   name,
					Type:   "sqs.Queue",
					CFType: "AWS::SQS::Queue",
				}
				if i > 0 {
					res.Dependencies = []string{fmt.Sprintf("Queue%d", i-1)}
				}
				resources[name] = res
			}

			builder := template.NewBuilder(resources)
			for name := range resources {
				builder.SetValue(name, map[string]any{})
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Build(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
