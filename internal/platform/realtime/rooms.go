package realtime

import "github.com/google/uuid"

// AdminRoom is the broadcast channel every admin dashboard joins.
const AdminRoom = "admin_room"

// Room name formats are part of the wire contract with connected clients and
// must not change.

func DepartmentRoom(id uuid.UUID) string { return "department_" + id.String() }

func PatientRoom(id uuid.UUID) string { return "patient_" + id.String() }

func UserRoom(id uuid.UUID) string { return "user_" + id.String() }
