package raid

const (
	// MaxAccounts is the largest count either half of an attendance code can hold.
	MaxAccounts = 7

	attendanceMask  = 0b0111
	attendanceShift = 4
)

// Attendance is one player's contribution to a group: accounts playing in person
// and accounts joining remotely.
type Attendance struct {
	InPerson int `json:"in_person"`
	Remote   int `json:"remote"`
}

// EncodeAttendance packs an attendance pair into a single sortable integer.
func EncodeAttendance(inPerson, remote int) (int, error) {
	if inPerson < 0 || inPerson > MaxAccounts || remote < 0 || remote > MaxAccounts {
		return 0, ErrAttendanceRange
	}

	return inPerson | (remote << attendanceShift), nil
}

// DecodeAttendance unpacks a code produced by EncodeAttendance.
func DecodeAttendance(code int) Attendance {
	return Attendance{
		InPerson: code & attendanceMask,
		Remote:   (code >> attendanceShift) & attendanceMask,
	}
}

// Valid reports whether both halves fit in an attendance code.
func (a Attendance) Valid() bool {
	_, err := EncodeAttendance(a.InPerson, a.Remote)

	return err == nil
}

// Code returns the packed form. Invalid pairs are clamped so the result is
// always decodable.
func (a Attendance) Code() int {
	code, err := EncodeAttendance(clamp(a.InPerson, 0, MaxAccounts), clamp(a.Remote, 0, MaxAccounts))
	if err != nil {
		return 0
	}

	return code
}

// Total returns every account the player brings.
func (a Attendance) Total() int {
	return a.InPerson + a.Remote
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
