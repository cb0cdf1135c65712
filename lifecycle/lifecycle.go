package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultGetTimeout Get未指定deadline时的默认等待时长
const DefaultGetTimeout = 10 * time.Second

type Initializer func(ctx context.Context) error

type entry struct {
	deps []string
	init Initializer
}

// Registry 集中化的资源注册表：资源按声明的依赖关系拓扑排序初始化，
// 消费方通过Get等待资源就绪
type Registry struct {
	mu          sync.Mutex
	resources   map[string]interface{}
	ready       map[string]chan struct{}
	entries     map[string]entry
	order       []string // 注册顺序，保证同层依赖的初始化顺序稳定
	initialized bool
}

func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]interface{}),
		ready:     make(map[string]chan struct{}),
		entries:   make(map[string]entry),
	}
}

// Register 注册资源初始化器与其依赖
func (r *Registry) Register(name string, deps []string, init Initializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		r.order = append(r.order, name)
	}
	r.entries[name] = entry{deps: deps, init: init}
	if _, ok := r.ready[name]; !ok {
		r.ready[name] = make(chan struct{})
	}
}

// Set 设置资源值并标记为就绪
func (r *Registry) Set(name string, resource interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[name] = resource
	ch, ok := r.ready[name]
	if !ok {
		ch = make(chan struct{})
		r.ready[name] = ch
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Get 获取资源，资源未就绪时等待；ctx无deadline时使用DefaultGetTimeout
func (r *Registry) Get(ctx context.Context, name string) (interface{}, error) {
	r.mu.Lock()
	if res, ok := r.resources[name]; ok {
		r.mu.Unlock()
		return res, nil
	}
	ch, ok := r.ready[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("lifecycle: 资源 %q 未注册", name)
	}

	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultGetTimeout)
		defer cancel()
	}
	select {
	case <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("lifecycle: 等待资源 %q 超时: %w", name, ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resources[name], nil
}

// Initialize 按依赖顺序初始化所有已注册资源；单个资源失败不阻止其余资源，
// 错误汇总后返回
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return nil
	}
	r.initialized = true
	order, err := r.initializationOrder()
	entries := make(map[string]entry, len(r.entries))
	for k, v := range r.entries {
		entries[k] = v
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range order {
		e, ok := entries[name]
		if !ok || e.init == nil {
			continue
		}
		if init_err := e.init(ctx); init_err != nil {
			errs = append(errs, fmt.Errorf("初始化资源 %q 失败: %w", name, init_err))
			continue
		}
		r.markReady(name)
	}
	return errors.Join(errs...)
}

func (r *Registry) markReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.ready[name]
	if !ok {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// initializationOrder 基于依赖关系的拓扑排序；调用方需持有锁
func (r *Registry) initializationOrder() ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	order := make([]string, 0, len(r.entries))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("lifecycle: 资源 %q 存在循环依赖", name)
		}
		state[name] = visiting
		for _, dep := range r.entries[name].deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range r.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// States 返回各资源的就绪状态描述，供调试展示
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make(map[string]string, len(r.ready))
	for name, ch := range r.ready {
		select {
		case <-ch:
			states[name] = "ready"
		default:
			states[name] = "pending"
		}
	}
	return states
}

// Names 返回已注册资源名（按注册顺序之外另行排序）
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.ready))
	for name := range r.ready {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

/* 全局默认注册表 */

var default_registry = NewRegistry()

func Register(name string, deps []string, init Initializer) {
	default_registry.Register(name, deps, init)
}

func Set(name string, resource interface{}) {
	default_registry.Set(name, resource)
}

func Get(ctx context.Context, name string) (interface{}, error) {
	return default_registry.Get(ctx, name)
}

func Initialize(ctx context.Context) error {
	return default_registry.Initialize(ctx)
}

func States() map[string]string {
	return default_registry.States()
}

// Reset 重建默认注册表，仅测试使用
func Reset() {
	default_registry = NewRegistry()
}
