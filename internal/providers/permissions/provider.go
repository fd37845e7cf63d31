package permissions

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DuckingEvents is the entitlement that lets a package be told about duckable
// focus losses instead of being ducked silently.
const DuckingEvents = "RECEIVE_CAR_AUDIO_DUCKING_EVENTS"

const defaultAuditSize = 256

// AuditEntry records one entitlement check
type AuditEntry struct {
	Timestamp   int64  `json:"timestamp"`
	PackageName string `json:"package_name"`
	Permission  string `json:"permission"`
	Allowed     bool   `json:"allowed"`
}

// Provider grants the ducking-events entitlement to an allowlist of packages
type Provider struct {
	mu       sync.RWMutex
	granted  map[string]int64 // package -> granted at; Protected by mu
	audit    []AuditEntry     // ring buffer; Protected by mu
	next     int              // Protected by mu
	full     bool             // Protected by mu
	logger   *zap.Logger
	clock    func() time.Time
	auditCap int
}

// NewProvider creates a provider that allows the given packages
func NewProvider(packages []string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		granted:  make(map[string]int64),
		audit:    make([]AuditEntry, defaultAuditSize),
		logger:   logger.Named("permissions"),
		clock:    time.Now,
		auditCap: defaultAuditSize,
	}
	for _, pkg := range packages {
		p.Grant(pkg)
	}
	return p
}

// CanReceiveDuckingEvents implements focus.PermissionChecker
func (p *Provider) CanReceiveDuckingEvents(packageName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, allowed := p.granted[packageName]
	p.recordLocked(AuditEntry{
		Timestamp:   p.clock().Unix(),
		PackageName: packageName,
		Permission:  DuckingEvents,
		Allowed:     allowed,
	})
	return allowed
}

// Grant allows packageName. Blank names are ignored.
func (p *Provider) Grant(packageName string) bool {
	packageName = strings.TrimSpace(packageName)
	if packageName == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.granted[packageName]; ok {
		return true
	}
	p.granted[packageName] = p.clock().Unix()
	p.logger.Info("Permission granted",
		zap.String("package", packageName),
		zap.String("permission", DuckingEvents),
	)
	return true
}

// Revoke removes packageName, reporting whether it was allowed
func (p *Provider) Revoke(packageName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.granted[packageName]; !ok {
		return false
	}
	delete(p.granted, packageName)
	p.logger.Info("Permission revoked",
		zap.String("package", packageName),
		zap.String("permission", DuckingEvents),
	)
	return true
}

// List returns the allowed packages in order
func (p *Provider) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.granted))
	for pkg := range p.granted {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

// Audit returns up to limit of the most recent checks, newest first. A
// non-positive limit returns everything retained.
func (p *Provider) Audit(packageName string, limit int) []AuditEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	size := p.next
	if p.full {
		size = p.auditCap
	}
	out := make([]AuditEntry, 0, size)
	for i := 0; i < size; i++ {
		e := p.audit[(p.next-1-i+p.auditCap)%p.auditCap]
		if packageName != "" && e.PackageName != packageName {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (p *Provider) recordLocked(e AuditEntry) {
	p.audit[p.next] = e
	p.next = (p.next + 1) % p.auditCap
	if p.next == 0 {
		p.full = true
	}
}
