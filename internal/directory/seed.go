package directory

import (
	"context"
	"fmt"
	"os"

	"github.com/mautops/review-gin/internal/model"
	"github.com/mautops/review-gin/internal/repository"
	"gopkg.in/yaml.v3"
)

// SeedMember YAML 中的一条成员登记
type SeedMember struct {
	Identity string `yaml:"identity"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	OrgUnit  string `yaml:"org_unit"`
	Role     string `yaml:"role"`
	Position int    `yaml:"position"`
}

// SeedFile 成员登记文件
type SeedFile struct {
	Members []SeedMember `yaml:"members"`
}

// ParseSeed 解析成员登记 YAML
func ParseSeed(data []byte) (*SeedFile, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, m := range f.Members {
		if m.Identity == "" || m.OrgUnit == "" || m.Role == "" {
			return nil, fmt.Errorf("member #%d: identity, org_unit and role are required", i+1)
		}
	}
	return &f, nil
}

// LoadSeedFile 读取并解析成员登记文件
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// Seed 写入成员,返回写入条数与涉及的组织单元
func Seed(ctx context.Context, repo repository.MemberRepository, f *SeedFile) (int, []string, error) {
	seen := make(map[string]bool)
	var units []string
	for i, m := range f.Members {
		member := &model.MemberModel{
			Identity: m.Identity,
			Name:     m.Name,
			Email:    m.Email,
			OrgUnit:  m.OrgUnit,
			Role:     m.Role,
			Position: m.Position,
		}
		if err := repo.Upsert(ctx, member); err != nil {
			return i, units, fmt.Errorf("failed to seed member %s: %w", m.Identity, err)
		}
		if !seen[m.OrgUnit] {
			seen[m.OrgUnit] = true
			units = append(units, m.OrgUnit)
		}
	}
	return len(f.Members), units, nil
}
