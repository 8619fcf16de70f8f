// Package menu defines the role-gated navigation trees of the shelfmate
// web app.
//
// The trees are pure data: the navigation layer renders them, the gate
// decides whether their subtrees are reachable. Filtering by resolved
// access keeps admin-only entries out of a regular user's menu entirely
// rather than greying them out.
package menu

import shelfmate "github.com/adarshmaurya03/shelfmate-suite"

// Item is one navigation entry.
type Item struct {
	Title       string
	Description string
	Path        string
	AdminOnly   bool
	Children    []Item
}

// Tree returns the full, unfiltered navigation tree.
func Tree() []Item {
	return []Item{
		{
			Title:       "Maintenance",
			Description: "Manage system data and configurations",
			Path:        "/admin/maintenance",
			AdminOnly:   true,
			Children: []Item{
				{
					Title:       "Membership Management",
					Description: "Add or update library memberships",
					Path:        "/admin/maintenance/membership",
					AdminOnly:   true,
				},
				{
					Title:       "Book/Movie Management",
					Description: "Add or update books and movies",
					Path:        "/admin/maintenance/books",
					AdminOnly:   true,
				},
				{
					Title:       "User Management",
					Description: "Manage system users and permissions",
					Path:        "/admin/maintenance/users",
					AdminOnly:   true,
				},
			},
		},
		{
			Title:       "Reports",
			Description: "View availability and issue reports",
			Path:        "/reports",
		},
		{
			Title:       "Transactions",
			Description: "Issue, return and pay fines",
			Path:        "/transactions",
		},
	}
}

// ForAccess filters the tree down to what the resolved access may see.
// While access is still loading nothing is shown; the caller's gate is
// responsible for holding navigation until resolution settles.
func ForAccess(access shelfmate.ResolvedAccess) []Item {
	if access.IsLoading {
		return nil
	}
	return filter(Tree(), access.IsAdmin)
}

func filter(items []Item, isAdmin bool) []Item {
	var out []Item
	for _, item := range items {
		if item.AdminOnly && !isAdmin {
			continue
		}
		item.Children = filter(item.Children, isAdmin)
		out = append(out, item)
	}
	return out
}
