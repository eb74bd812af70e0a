package guard

import (
	"strings"

	"github.com/jrsteele09/go-auth-client/users"
)

// Route path constants
const (
	RootPath         = "/"
	LoginPath        = "/login"
	RegisterPath     = "/register"
	UnauthorizedPath = "/unauthorized"
	ProfilePath      = "/profile"

	AdminDashboard   = "/admin/dashboard"
	AdminUsers       = "/admin/users"
	AdminClasses     = "/admin/classes"
	TeacherDashboard = "/teacher/dashboard"
	TeacherCourses   = "/teacher/courses"
	TeacherExams     = "/teacher/exams"
	StudentDashboard = "/student/dashboard"
	StudentCourses   = "/student/courses"
	StudentGrades    = "/student/grades"
	ParentDashboard  = "/parent/dashboard"
	ParentChildren   = "/parent/children"
)

// Route declares how a path is admitted. Guest routes are for signed-out users
// only; public routes are open to everyone; a protected route with no roles
// needs authentication and nothing more.
type Route struct {
	Path   string
	Guest  bool
	Public bool
	Roles  []users.RoleType
}

var dashboards = map[users.RoleType]string{
	users.RoleAdmin:   AdminDashboard,
	users.RoleTeacher: TeacherDashboard,
	users.RoleStudent: StudentDashboard,
	users.RoleParent:  ParentDashboard,
}

// DashboardFor returns the landing page of role, or the root path
func DashboardFor(role users.RoleType) string {
	if path, ok := dashboards[role]; ok {
		return path
	}
	return RootPath
}

// Routes is the platform's route table
var Routes = []Route{
	{Path: LoginPath, Guest: true},
	{Path: RegisterPath, Guest: true},
	{Path: UnauthorizedPath, Public: true},
	{Path: ProfilePath},

	{Path: AdminDashboard, Roles: []users.RoleType{users.RoleAdmin}},
	{Path: AdminUsers, Roles: []users.RoleType{users.RoleAdmin}},
	{Path: AdminClasses, Roles: []users.RoleType{users.RoleAdmin}},

	{Path: TeacherDashboard, Roles: []users.RoleType{users.RoleTeacher}},
	{Path: TeacherCourses, Roles: []users.RoleType{users.RoleTeacher, users.RoleAdmin}},
	{Path: TeacherExams, Roles: []users.RoleType{users.RoleTeacher}},

	{Path: StudentDashboard, Roles: []users.RoleType{users.RoleStudent}},
	{Path: StudentCourses, Roles: []users.RoleType{users.RoleStudent}},
	{Path: StudentGrades, Roles: []users.RoleType{users.RoleStudent, users.RoleParent}},

	{Path: ParentDashboard, Roles: []users.RoleType{users.RoleParent}},
	{Path: ParentChildren, Roles: []users.RoleType{users.RoleParent}},
}

// Lookup finds the route for path. Sub-paths inherit their section's
// declaration, so /teacher/courses/12 is admitted like /teacher/courses.
func Lookup(path string) (Route, bool) {
	path = "/" + strings.Trim(path, "/")
	var best Route
	found := false
	for _, r := range Routes {
		if path == r.Path {
			return r, true
		}
		if strings.HasPrefix(path, r.Path+"/") && len(r.Path) > len(best.Path) {
			best, found = r, true
		}
	}
	if found {
		best.Path = path
	}
	return best, found
}
