package portal

import (
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

// Section is a feature-gated area of the portal.
type Section struct {
	Name    string               `json:"name"`
	Path    string               `json:"path"`
	Feature subscription.Feature `json:"feature"`
	Roles   []rbac.Role          `json:"-"`
}

var sections = []Section{
	{Name: "Certificates", Path: "/certificates", Feature: subscription.FeatureCertificates, Roles: gpRoles},
	{Name: "Welfare schemes", Path: "/schemes", Feature: subscription.FeatureSchemes, Roles: gpRoles},
	{Name: "Water quality reports", Path: "/water-reports", Feature: subscription.FeatureWaterQuality, Roles: gpRoles},
	{Name: "Public assets", Path: "/assets", Feature: subscription.FeatureAssets, Roles: gpRoles},
	{Name: "Warish applications", Path: "/warish", Feature: subscription.FeatureWarish, Roles: gpRoles},
	{Name: "Staff", Path: "/staff", Feature: subscription.FeatureStaff, Roles: []rbac.Role{rbac.GPAdmin}},
}

var gpRoles = []rbac.Role{rbac.GPAdmin, rbac.GPStaff}

// Sections returns the gated sections in menu order.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}
