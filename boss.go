package raid

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// BossProvider supplies the bosses a session can fight.
type BossProvider interface {
	GetBossCandidates(ctx context.Context, tier int) ([]string, error)
	GetBossDescriptor(ctx context.Context, name string) (Boss, error)
}

// StaticBossProvider serves a fixed boss list. Names match case insensitively.
type StaticBossProvider struct {
	bosses map[string]Boss
	tiers  map[int][]string
}

type bossFile struct {
	Bosses []Boss `yaml:"bosses"`
}

func NewStaticBossProvider(bosses []Boss) *StaticBossProvider {
	p := &StaticBossProvider{
		bosses: make(map[string]Boss, len(bosses)),
		tiers:  make(map[int][]string),
	}

	for _, boss := range bosses {
		key := foldBossName(boss.Name)
		if key == "" {
			continue
		}

		if _, duplicate := p.bosses[key]; !duplicate {
			p.tiers[boss.Tier] = append(p.tiers[boss.Tier], boss.Name)
		}

		p.bosses[key] = boss
	}

	return p
}

// NewStaticBossProviderFromPath reads a YAML file with a top level bosses list.
func NewStaticBossProviderFromPath(path string) (*StaticBossProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boss file: %w", err)
	}

	var file bossFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal boss file: %w", err)
	}

	return NewStaticBossProvider(file.Bosses), nil
}

func (p *StaticBossProvider) GetBossCandidates(_ context.Context, tier int) ([]string, error) {
	candidates := p.tiers[tier]
	if len(candidates) == 0 {
		return nil, fmt.Errorf("tier %d: %w", tier, ErrNoBossCandidate)
	}

	return slices.Clone(candidates), nil
}

func (p *StaticBossProvider) GetBossDescriptor(_ context.Context, name string) (Boss, error) {
	boss, ok := p.bosses[foldBossName(name)]
	if !ok {
		return Boss{}, fmt.Errorf("%q: %w", name, ErrUnknownBoss)
	}

	boss.Types = slices.Clone(boss.Types)

	return boss, nil
}

// Count returns how many distinct bosses are known.
func (p *StaticBossProvider) Count() int {
	return len(p.bosses)
}

func foldBossName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
