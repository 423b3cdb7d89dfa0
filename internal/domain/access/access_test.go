package access

import "testing"

func TestCanEditField(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		privileged bool
		want       bool
	}{
		{name: "firstName в ограниченном режиме", field: "firstName", privileged: false, want: true},
		{name: "lastName в ограниченном режиме", field: "lastName", privileged: false, want: true},
		{name: "phoneNumber в ограниченном режиме", field: "phoneNumber", privileged: false, want: true},
		{name: "email в ограниченном режиме", field: "email", privileged: false, want: false},
		{name: "employeeId в ограниченном режиме", field: "employeeId", privileged: false, want: false},
		{name: "role в ограниченном режиме", field: "role", privileged: false, want: false},
		{name: "status в ограниченном режиме", field: "status", privileged: false, want: false},
		{name: "email в привилегированном режиме", field: "email", privileged: true, want: true},
		{name: "status в привилегированном режиме", field: "status", privileged: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEditField(tt.field, tt.privileged); got != tt.want {
				t.Errorf("CanEditField(%q, %v) = %v, хотели %v", tt.field, tt.privileged, got, tt.want)
			}
		})
	}
}

func TestMapGroupsToRole(t *testing.T) {
	adminGroups := []string{"staffdesk-admins", "hr-operators"}

	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{name: "без групп", groups: nil, want: RoleStaff},
		{name: "обычная группа", groups: []string{"engineering"}, want: RoleStaff},
		{name: "admin-группа", groups: []string{"staffdesk-admins"}, want: RoleAdmin},
		{name: "admin-группа среди прочих", groups: []string{"engineering", "hr-operators"}, want: RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapGroupsToRole(tt.groups, adminGroups); got != tt.want {
				t.Errorf("MapGroupsToRole(%v) = %q, хотели %q", tt.groups, got, tt.want)
			}
		})
	}
}
