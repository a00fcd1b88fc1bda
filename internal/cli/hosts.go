package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hostpulse/hostpulse/internal/config"
	"github.com/hostpulse/hostpulse/pkg/sshutil"
)

var (
	hostNameStyle   = lipgloss.NewStyle().Bold(true)
	hostDetailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B6B8D"))
	hostSourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B4B4D0"))
)

// hostListEntry is one row of 'hostpulse hosts' output.
type hostListEntry struct {
	Name   string   `json:"name"`
	Host   string   `json:"host,omitempty"`
	User   string   `json:"user,omitempty"`
	Port   int      `json:"port,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Source string   `json:"source"` // "config" or "ssh_config"
}

// hostsCommand lists hosts from the hostpulse config and ~/.ssh/config.
func hostsCommand(jsonOut bool, tag string) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	entries := collectHosts(cfg, tag)

	if jsonOut {
		return WriteJSONSuccess(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("No hosts found. Add some with 'hostpulse init' or in ~/.ssh/config.")
		return nil
	}

	for _, e := range entries {
		var details []string
		if e.Host != "" && e.Host != e.Name {
			details = append(details, e.Host)
		}
		if e.User != "" {
			details = append(details, "user: "+e.User)
		}
		if e.Port != 0 && e.Port != 22 {
			details = append(details, fmt.Sprintf("port: %d", e.Port))
		}
		if len(e.Tags) > 0 {
			details = append(details, "tags: "+strings.Join(e.Tags, ","))
		}

		line := "  " + hostNameStyle.Render(fmt.Sprintf("%-16s", e.Name))
		if len(details) > 0 {
			line += " " + hostDetailStyle.Render(strings.Join(details, ", "))
		}
		line += " " + hostSourceStyle.Render("("+e.Source+")")
		fmt.Println(line)
	}

	return nil
}

// collectHosts merges config hosts with ~/.ssh/config aliases. Config
// entries win when both define the same name; the tag filter only ever
// matches config hosts since SSH config has no tags.
func collectHosts(cfg *config.Config, tag string) []hostListEntry {
	var entries []hostListEntry
	seen := make(map[string]bool)

	for name, h := range cfg.Hosts {
		if tag != "" && !h.HasTag(tag) {
			continue
		}
		entries = append(entries, hostListEntry{
			Name:   name,
			Host:   h.Host,
			User:   h.User,
			Port:   h.Port,
			Tags:   h.Tags,
			Source: "config",
		})
		seen[name] = true
	}

	if tag == "" {
		sshHosts, err := sshutil.ListHosts()
		if err == nil {
			for _, h := range sshHosts {
				if seen[h.Alias] {
					continue
				}
				entry := hostListEntry{
					Name:   h.Alias,
					Host:   h.Hostname,
					User:   h.User,
					Source: "ssh_config",
				}
				fmt.Sscanf(h.Port, "%d", &entry.Port)
				entries = append(entries, entry)
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Source != entries[j].Source {
			return entries[i].Source == "config"
		}
		return entries[i].Name < entries[j].Name
	})

	return entries
}
