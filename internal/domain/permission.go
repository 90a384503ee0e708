package domain

// Permission is a closed enumeration of grantable rights. Server-wide meta
// permissions carry no project; package permissions always name one.
type Permission string

const (
	// PermMetaAdmin allows full administration of principals, groups, and grants.
	PermMetaAdmin Permission = "meta.admin"
	// PermMetaCreate allows registering new projects on the index.
	PermMetaCreate Permission = "meta.create"
	// PermPkgManage allows delegating package permissions on one project.
	PermPkgManage Permission = "pkg.manage"
	// PermPkgEdit allows publishing releases and files to one project.
	PermPkgEdit Permission = "pkg.edit"
	// PermPkgView allows reading one project when visibility is restricted.
	PermPkgView Permission = "pkg.view"
)

// Valid reports whether p is one of the known permissions.
func (p Permission) Valid() bool {
	switch p {
	case PermMetaAdmin, PermMetaCreate, PermPkgManage, PermPkgEdit, PermPkgView:
		return true
	}
	return false
}

// IsMeta reports whether p is a server-wide permission.
func (p Permission) IsMeta() bool {
	return p == PermMetaAdmin || p == PermMetaCreate
}

// IsPackage reports whether p is scoped to a single project.
func (p Permission) IsPackage() bool {
	return p.Valid() && !p.IsMeta()
}

// Grant target kinds. Users and tokens share the "principal" kind; their ids
// never collide because both are UUIDs.
const (
	TargetPrincipal = "principal"
	TargetGroup     = "group"
)

// Grant is one stored permission row attached to a principal or a group.
// Project is nil for meta permissions.
type Grant struct {
	ID         string
	Permission Permission
	TargetType string
	TargetID   string
	Project    *string
}

// Matches reports whether the grant satisfies a (permission, project) query.
// Meta grants match regardless of the project argument; package grants match
// only on exact project equality.
func (g Grant) Matches(p Permission, project *string) bool {
	if g.Permission != p {
		return false
	}
	if g.Permission.IsMeta() {
		return true
	}
	return g.Project != nil && project != nil && *g.Project == *project
}

// Spec returns the caller-facing (permission, project) view of the grant.
func (g Grant) Spec() PermissionSpec {
	return PermissionSpec{Permission: g.Permission, Project: g.Project}
}

// PermissionSpec is the wire form of a permission: the permission name plus
// an optional project scope.
type PermissionSpec struct {
	Permission Permission `json:"permission"`
	Project    *string    `json:"project,omitempty"`
}

// Validate checks the permission/project pairing rules: package permissions
// require a project, meta permissions forbid one.
func (s PermissionSpec) Validate() error {
	if !s.Permission.Valid() {
		return ErrValidation("unknown permission %q", s.Permission)
	}
	if s.Permission.IsPackage() && (s.Project == nil || *s.Project == "") {
		return ErrValidation("permission %q requires a project", s.Permission)
	}
	if s.Permission.IsMeta() && s.Project != nil {
		return ErrValidation("permission %q cannot be scoped to a project", s.Permission)
	}
	return nil
}

// GrantTarget identifies a grant holder: a permissioned principal or a group.
type GrantTarget struct {
	Type     string
	ID       string
	GroupIDs []string
}

// TargetOfPrincipal converts a principal into a grant target. The admin maps
// to a sentinel target that mutation paths reject; anonymous callers cannot
// hold grants at all.
func TargetOfPrincipal(p Principal) (GrantTarget, error) {
	switch v := p.(type) {
	case Admin:
		return GrantTarget{Type: TargetPrincipal, ID: AdminID}, nil
	case Permissioned:
		return GrantTarget{Type: TargetPrincipal, ID: v.PrincipalID(), GroupIDs: v.GroupIDs()}, nil
	default:
		return GrantTarget{}, ErrValidation("anonymous callers cannot hold permissions")
	}
}

// TargetOfGroup converts a group into a grant target.
func TargetOfGroup(g *Group) GrantTarget {
	return GrantTarget{Type: TargetGroup, ID: g.ID}
}
