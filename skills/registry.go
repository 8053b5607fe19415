package skills

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/skillflow/types"
)

// Factory 按需构造技能实例。注册中心对每个技能惰性调用一次并缓存。
type Factory func() (Skill, error)

// registration 一个已注册技能的完整记录。
type registration struct {
	meta     *types.SkillMetadata
	factory  Factory
	instance Skill // 惰性单例
}

// RegistryStats 注册中心快照统计。
type RegistryStats struct {
	TotalSkills   int            `json:"total_skills"`
	EnabledSkills int            `json:"enabled_skills"`
	ByCategory    map[string]int `json:"by_category"`
	Instantiated  int            `json:"instantiated"`
}

// Registry 技能注册中心。持有元数据与工厂，按名字惰性构造单例实例。
// 所有方法并发安全。
type Registry struct {
	mu         sync.RWMutex
	skills     map[string]*registration
	byCategory map[types.SkillCategory][]string
	logger     *zap.Logger
}

// NewRegistry 构造空注册中心。logger 为 nil 时使用 Nop。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		skills:     make(map[string]*registration),
		byCategory: make(map[types.SkillCategory][]string),
		logger:     logger.With(zap.String("component", "skill_registry")),
	}
}

// Register 注册一个技能。元数据校验失败返回 INVALID_METADATA；
// 重名注册覆盖旧记录并告警，而不是报错，方便热替换。
func (r *Registry) Register(meta *types.SkillMetadata, factory Factory) error {
	if meta == nil {
		return types.NewError(types.ErrInvalidMetadata, "metadata is nil")
	}
	if factory == nil {
		return types.NewError(types.ErrInvalidMetadata, "factory is nil").WithSkill(meta.Name)
	}
	if problems := meta.Validate(); len(problems) > 0 {
		return types.NewError(types.ErrInvalidMetadata,
			fmt.Sprintf("invalid metadata: %v", problems)).WithSkill(meta.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.skills[meta.Name]; ok {
		r.logger.Warn("覆盖已注册技能",
			zap.String("skill", meta.Name),
			zap.String("old_version", old.meta.Version),
			zap.String("new_version", meta.Version))
		r.removeFromCategoryLocked(old.meta)
	}

	now := time.Now()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now

	r.skills[meta.Name] = &registration{meta: meta, factory: factory}
	r.byCategory[meta.Category] = append(r.byCategory[meta.Category], meta.Name)

	r.logger.Info("技能已注册",
		zap.String("skill", meta.Name),
		zap.String("category", string(meta.Category)),
		zap.String("version", meta.Version))
	return nil
}

// Unregister 注销技能。被其他已注册技能依赖时拒绝注销。
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.skills[name]
	if !ok {
		return types.NewError(types.ErrSkillNotFound, "skill not registered").WithSkill(name)
	}
	for other, o := range r.skills {
		if other == name {
			continue
		}
		for _, dep := range o.meta.Dependencies {
			if dep == name {
				return types.NewError(types.ErrDependencyHeld,
					fmt.Sprintf("skill is required by %q", other)).WithSkill(name)
			}
		}
	}

	r.removeFromCategoryLocked(reg.meta)
	delete(r.skills, name)
	r.logger.Info("技能已注销", zap.String("skill", name))
	return nil
}

func (r *Registry) removeFromCategoryLocked(meta *types.SkillMetadata) {
	names := r.byCategory[meta.Category]
	for i, n := range names {
		if n == meta.Name {
			r.byCategory[meta.Category] = append(names[:i], names[i+1:]...)
			break
		}
	}
}

// Get 按名字取技能实例。首次访问时调用工厂并缓存单例；
// 工厂失败不缓存，下次访问会重试。
func (r *Registry) Get(name string) (Skill, error) {
	r.mu.RLock()
	reg, ok := r.skills[name]
	if ok && reg.instance != nil {
		inst := reg.instance
		r.mu.RUnlock()
		return inst, nil
	}
	r.mu.RUnlock()

	if !ok {
		return nil, types.NewError(types.ErrSkillNotFound, "skill not registered").WithSkill(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok = r.skills[name]
	if !ok {
		return nil, types.NewError(types.ErrSkillNotFound, "skill not registered").WithSkill(name)
	}
	if reg.instance == nil {
		inst, err := reg.factory()
		if err != nil {
			return nil, types.NewError(types.ErrExecutionError, "skill factory failed").WithSkill(name).WithCause(err)
		}
		reg.instance = inst
	}
	return reg.instance, nil
}

// Metadata 按名字取元数据。
func (r *Registry) Metadata(name string) (*types.SkillMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.skills[name]
	if !ok {
		return nil, false
	}
	return reg.meta, true
}

// ListNames 返回全部已注册技能名，按字典序。
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for n := range r.skills {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListByCategory 返回某分类下的技能元数据。
func (r *Registry) ListByCategory(cat types.SkillCategory) []*types.SkillMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.SkillMetadata, 0, len(r.byCategory[cat]))
	for _, n := range r.byCategory[cat] {
		out = append(out, r.skills[n].meta)
	}
	return out
}

// ListAvailable 返回对给定角色可用的技能：启用、角色兼容、且全部依赖
// 都已注册并启用。依赖缺失的技能被静默排除，只记日志。
func (r *Registry) ListAvailable(characterName string) []*types.SkillMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.SkillMetadata, 0, len(r.skills))
	for _, name := range r.sortedNamesLocked() {
		reg := r.skills[name]
		if !reg.meta.Enabled {
			continue
		}
		if !reg.meta.CompatibleWith(characterName) {
			continue
		}
		if missing := r.missingDepsLocked(reg.meta); missing != "" {
			r.logger.Debug("技能依赖不满足，已排除",
				zap.String("skill", name),
				zap.String("missing", missing))
			continue
		}
		out = append(out, reg.meta)
	}
	return out
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.skills))
	for n := range r.skills {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) missingDepsLocked(meta *types.SkillMetadata) string {
	for _, dep := range meta.Dependencies {
		d, ok := r.skills[dep]
		if !ok || !d.meta.Enabled {
			return dep
		}
	}
	return ""
}

// ValidateDependencies 全量校验依赖闭包，返回 技能名→缺失依赖 映射。
func (r *Registry) ValidateDependencies() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	problems := make(map[string][]string)
	for name, reg := range r.skills {
		var missing []string
		for _, dep := range reg.meta.Dependencies {
			if _, ok := r.skills[dep]; !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			problems[name] = missing
		}
	}
	return problems
}

// SetEnabled 启用或禁用技能。
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.skills[name]
	if !ok {
		return types.NewError(types.ErrSkillNotFound, "skill not registered").WithSkill(name)
	}
	reg.meta.Enabled = enabled
	reg.meta.UpdatedAt = time.Now()
	return nil
}

// Stats 返回注册中心统计。
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := RegistryStats{ByCategory: make(map[string]int)}
	for _, reg := range r.skills {
		s.TotalSkills++
		if reg.meta.Enabled {
			s.EnabledSkills++
		}
		s.ByCategory[string(reg.meta.Category)]++
		if reg.instance != nil {
			s.Instantiated++
		}
	}
	return s
}
