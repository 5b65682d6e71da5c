// Package tables loads the externally-editable trigger, response and
// bot-peer tables and keeps an atomically swapped snapshot fresh.
package tables

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TriggerRule is one phrase → (probability, responses) mapping. A key
// containing a '.' must match at the start of the message, other keys
// match anywhere.
type TriggerRule struct {
	Key       string
	Chance    float64
	Responses []string
}

// Snapshot is one immutable view of the reloadable tables. It is replaced
// wholesale on each reload, never mutated in place.
type Snapshot struct {
	Triggers  []TriggerRule // load order preserved
	Responses []string
	BotPeers  map[string]bool
}

// IsBotPeer reports whether name is a recognized bot peer.
func (s *Snapshot) IsBotPeer(name string) bool {
	return s.BotPeers[name]
}

// Load reads triggers.yaml, responses.txt and bots.txt from dataDir.
// Missing files yield empty tables. adminName, nick and commandPrefix are
// substituted into keys and canned responses the same way on every load.
func Load(dataDir, adminName, nick, commandPrefix string) (*Snapshot, error) {
	triggers, err := loadTriggers(filepath.Join(dataDir, "triggers.yaml"), adminName, nick)
	if err != nil {
		return nil, err
	}

	responses, err := readLines(filepath.Join(dataDir, "responses.txt"))
	if err != nil {
		return nil, err
	}
	for i, r := range responses {
		r = strings.Replace(r, "ADMIN", adminName, 1)
		r = strings.Replace(r, "COMMANDPREFIX", commandPrefix, 1)
		responses[i] = r
	}

	peers, err := readLines(filepath.Join(dataDir, "bots.txt"))
	if err != nil {
		return nil, err
	}
	botPeers := make(map[string]bool, len(peers))
	for _, p := range peers {
		botPeers[p] = true
	}

	return &Snapshot{Triggers: triggers, Responses: responses, BotPeers: botPeers}, nil
}

// loadTriggers parses the YAML trigger table preserving document order.
// Each value is a sequence whose first element is the probability and
// whose remaining elements are response templates.
func loadTriggers(path, adminName, nick string) ([]TriggerRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read trigger table: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse trigger table: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("trigger table: expected a mapping at top level")
	}

	var rules []TriggerRule
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]

		// Substitute the uppercase placeholders first, then fold the
		// whole key; keys are matched against lowercased messages.
		key := strings.Replace(keyNode.Value, "ADMIN", adminName, 1)
		key = strings.Replace(key, "BOTNAME", nick, 1)
		key = strings.ToLower(key)

		var seq []string
		if valNode.Kind != yaml.SequenceNode || len(valNode.Content) < 2 {
			slog.Warn("skipping malformed trigger rule", slog.String("key", keyNode.Value))
			continue
		}
		var chance float64
		if err := valNode.Content[0].Decode(&chance); err != nil {
			slog.Warn("skipping trigger rule with bad probability",
				slog.String("key", keyNode.Value), slog.Any("err", err))
			continue
		}
		if chance < 0 || chance > 1 {
			slog.Warn("skipping trigger rule with out-of-range probability",
				slog.String("key", keyNode.Value), slog.Float64("chance", chance))
			continue
		}
		for _, rn := range valNode.Content[1:] {
			seq = append(seq, rn.Value)
		}

		rules = append(rules, TriggerRule{Key: key, Chance: chance, Responses: seq})
	}
	return rules, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
