// Package hierarchy repairs, categorizes, and links work item drafts into a
// complete four-level tree. Reconcile is pure computation: deterministic,
// idempotent, and free of I/O.
package hierarchy

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/planweave/planweave/pkg/models"
)

// FallbackCategory is the category that absorbs items nothing else matches.
const FallbackCategory = "System & Technical"

// Category describes one named grouping used to organize stories under
// synthesized epics.
type Category struct {
	// Name is the category name, used as the synthesized epic title.
	Name string `yaml:"name"`
	// Description becomes the synthesized epic description.
	Description string `yaml:"description"`
	// Priority is the priority hint for the synthesized epic.
	Priority models.Priority `yaml:"priority"`
	// Keywords are matched against item text during categorization.
	Keywords []string `yaml:"keywords"`
	// ItemTypes lists the draft types this category applies to.
	ItemTypes []models.ItemType `yaml:"item_types"`
}

// appliesTo returns true if the category covers the given item type.
func (c Category) appliesTo(t models.ItemType) bool {
	for _, it := range c.ItemTypes {
		if it == t {
			return true
		}
	}
	return false
}

// Registry is an ordered, immutable set of categories. Order matters:
// categorization tie-breaks resolve to the first registered category.
type Registry struct {
	categories []Category
}

// NewRegistry creates a registry from the given categories, preserving
// order.
func NewRegistry(categories []Category) Registry {
	return Registry{categories: categories}
}

// Categories returns the registered categories in order.
func (r Registry) Categories() []Category {
	return r.categories
}

// Lookup returns the category with the given name.
func (r Registry) Lookup(name string) (Category, bool) {
	for _, c := range r.categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// registryFile is the YAML override file structure.
type registryFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadRegistry reads a category registry from a YAML file. The file replaces
// the default registry wholesale.
func LoadRegistry(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("read registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Registry{}, fmt.Errorf("parse registry file: %w", err)
	}
	if len(file.Categories) == 0 {
		return Registry{}, fmt.Errorf("registry file %s defines no categories", path)
	}

	for i, c := range file.Categories {
		if c.Name == "" {
			return Registry{}, fmt.Errorf("registry category %d has no name", i)
		}
		if !c.Priority.Valid() {
			return Registry{}, fmt.Errorf("registry category %q has invalid priority %q", c.Name, c.Priority)
		}
	}

	return NewRegistry(file.Categories), nil
}

// epicStory is the type pair most categories apply to.
var epicStory = []models.ItemType{models.ItemTypeEpic, models.ItemTypeStory}

// DefaultRegistry returns the built-in category registry. The fallback
// category must always be present; orphan handling depends on it.
func DefaultRegistry() Registry {
	return NewRegistry([]Category{
		{
			Name:        "User Management & Authentication",
			Description: "User authentication, authorization, role management, and user account features",
			Keywords:    []string{"user", "auth", "login", "register", "role", "permission", "account", "profile", "customer", "b2b", "b2c", "b2g", "group"},
			Priority:    models.PriorityHigh,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Product Catalog & Search",
			Description: "Product management, search functionality, filtering, categorization, and product discovery",
			Keywords:    []string{"product", "search", "catalog", "category", "filter", "variant", "attribute", "fuzzy", "predictive", "browse"},
			Priority:    models.PriorityHigh,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Pricing & Financial",
			Description: "Pricing display, calculations, discounts, taxes, and financial operations",
			Keywords:    []string{"price", "pricing", "cost", "discount", "tax", "gst", "financial", "payment", "billing", "invoice"},
			Priority:    models.PriorityHigh,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Inventory & Stock",
			Description: "Stock management, inventory tracking, availability, and warehouse operations",
			Keywords:    []string{"stock", "inventory", "availability", "warehouse", "level", "branch", "tracking", "out-of-stock"},
			Priority:    models.PriorityMedium,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Shopping & Ordering",
			Description: "Shopping cart, checkout process, order management, and purchasing workflows",
			Keywords:    []string{"cart", "checkout", "order", "purchase", "buy", "shopping", "basket", "collect", "behalf"},
			Priority:    models.PriorityHigh,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Shipping & Delivery",
			Description: "Shipping options, delivery management, address handling, and logistics",
			Keywords:    []string{"shipping", "delivery", "address", "logistics", "transport", "fulfillment"},
			Priority:    models.PriorityMedium,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Customer Service & Support",
			Description: "Customer support tools, help features, returns, and service management",
			Keywords:    []string{"support", "service", "help", "return", "refund", "rma", "chat", "contact", "assistance"},
			Priority:    models.PriorityMedium,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Marketing & Promotion",
			Description: "Marketing tools, promotional features, analytics, and customer engagement",
			Keywords:    []string{"marketing", "promotion", "analytics", "engagement", "social", "newsletter", "blog", "seo"},
			Priority:    models.PriorityMedium,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Integration & External",
			Description: "Third-party integrations, API connections, ERP systems, and external services",
			Keywords:    []string{"integration", "api", "external", "third-party", "netsuite", "erp", "crm", "sync"},
			Priority:    models.PriorityCritical,
			ItemTypes:   epicStory,
		},
		{
			Name:        "UI/UX & Frontend",
			Description: "User interface, user experience, frontend features, and visual components",
			Keywords:    []string{"ui", "ux", "interface", "frontend", "component", "layout", "design", "display", "page"},
			Priority:    models.PriorityMedium,
			ItemTypes:   epicStory,
		},
		{
			Name:        "Forms & Communication",
			Description: "Forms, communication features, messaging, and user interaction",
			Keywords:    []string{"form", "communication", "message", "interaction", "feedback", "enquiry", "contact"},
			Priority:    models.PriorityLow,
			ItemTypes:   epicStory,
		},
		{
			Name:        FallbackCategory,
			Description: "Technical requirements, system configuration, performance, and infrastructure",
			Keywords:    []string{"system", "technical", "config", "performance", "infrastructure", "setup", "module"},
			Priority:    models.PriorityMedium,
			ItemTypes:   epicStory,
		},
	})
}
