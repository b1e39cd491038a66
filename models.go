package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format(dayLayout) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"`+dayLayout+`"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Auth structs ───────────────────────────────────────────────────── */

// user maps to the users table. PasswordHash is hidden from JSON responses.
type user struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// session maps to the sessions table. A session whose ExpiresAt is at or
// before the current time is treated exactly like a missing one.
type session struct {
	Token     string    `json:"token"     db:"token"`
	UserID    string    `json:"userId"    db:"user_id"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

/* ─── Domain rows ────────────────────────────────────────────────────── */
//
// Every row struct maps 1:1 onto its table so RowToStructByName can scan
// SELECT * / RETURNING * results. Nullable columns use pointers.

type journalEntry struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Title     string    `json:"title"     db:"title"`
	Content   string    `json:"content"   db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type moodEntry struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	MoodValue int       `json:"moodValue" db:"mood_value"`
	MoodLabel string    `json:"moodLabel" db:"mood_label"`
	Notes     *string   `json:"notes"     db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type task struct {
	ID          int64      `json:"id"          db:"id"`
	UserID      string     `json:"userId"      db:"user_id"`
	Title       string     `json:"title"       db:"title"`
	Description *string    `json:"description" db:"description"`
	Status      string     `json:"status"      db:"status"`
	Priority    string     `json:"priority"    db:"priority"`
	DueDate     *time.Time `json:"dueDate"     db:"due_date"`
	CreatedAt   time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt"   db:"updated_at"`
}

type goal struct {
	ID          int64     `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	Title       string    `json:"title"       db:"title"`
	Description *string   `json:"description" db:"description"`
	Status      string    `json:"status"      db:"status"`
	TargetDate  *DateOnly `json:"targetDate"  db:"target_date"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

type chatMessage struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Message   string    `json:"message"   db:"message"`
	Role      string    `json:"role"      db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type meditationSession struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Duration  int       `json:"duration"  db:"duration"`
	Type      string    `json:"type"      db:"type"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type breathingSession struct {
	ID              int64     `json:"id"              db:"id"`
	UserID          string    `json:"userId"          db:"user_id"`
	DurationSeconds int       `json:"durationSeconds" db:"duration_seconds"`
	Technique       string    `json:"technique"       db:"technique"`
	CreatedAt       time.Time `json:"createdAt"       db:"created_at"`
}

type sleepEntry struct {
	ID         int64     `json:"id"         db:"id"`
	UserID     string    `json:"userId"     db:"user_id"`
	HoursSlept int       `json:"hoursSlept" db:"hours_slept"`
	Quality    int       `json:"quality"    db:"quality"`
	SleepDate  DateOnly  `json:"sleepDate"  db:"sleep_date"`
	Notes      *string   `json:"notes"      db:"notes"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}

type stressEntry struct {
	ID          int64     `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	StressLevel int       `json:"stressLevel" db:"stress_level"`
	Notes       *string   `json:"notes"       db:"notes"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

type activityCompletion struct {
	ID             int64     `json:"id"             db:"id"`
	UserID         string    `json:"userId"         db:"user_id"`
	ActivityName   string    `json:"activityName"   db:"activity_name"`
	Completed      bool      `json:"completed"      db:"completed"`
	CompletionDate DateOnly  `json:"completionDate" db:"completion_date"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
}

/* ─── Request payloads ───────────────────────────────────────────────── */
//
// Payloads serve both POST and PUT. All fields are pointers so only fields the
// client actually sent are validated and written (same idea as
// patchUserSettingsRequest). Tags:
//   db       column the value is written to
//   validate rules applied when the field is present
//   create   "required" when POST must include the field
//   code     suffix for MISSING_/EMPTY_/INVALID_ error codes
//   format   "date" or "datetime": converted to time.Time before storage
//   nullable "true" when an explicit null on PUT clears the column

type journalPayload struct {
	Title   *string `json:"title"   db:"title"   create:"required" code:"TITLE"   validate:"omitempty,notblank,max=200"`
	Content *string `json:"content" db:"content" create:"required" code:"CONTENT" validate:"omitempty,notblank,max=20000"`
}

type moodPayload struct {
	MoodValue *int    `json:"moodValue" db:"mood_value" create:"required" code:"MOOD_VALUE" validate:"omitempty,min=1,max=10"`
	MoodLabel *string `json:"moodLabel" db:"mood_label" create:"required" code:"MOOD_LABEL" validate:"omitempty,moodlabel"`
	Notes     *string `json:"notes"     db:"notes"                        code:"NOTES"      validate:"omitempty,max=2000" nullable:"true"`
}

type taskPayload struct {
	Title       *string `json:"title"       db:"title"       create:"required" code:"TITLE"       validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" db:"description"                   code:"DESCRIPTION" validate:"omitempty,max=2000" nullable:"true"`
	Status      *string `json:"status"      db:"status"                        code:"STATUS"      validate:"omitempty,taskstatus"`
	Priority    *string `json:"priority"    db:"priority"                      code:"PRIORITY"    validate:"omitempty,taskpriority"`
	DueDate     *string `json:"dueDate"     db:"due_date"                      code:"DUE_DATE"    validate:"omitempty,iso8601,calendar" format:"datetime" nullable:"true"`
}

type goalPayload struct {
	Title       *string `json:"title"       db:"title"       create:"required" code:"TITLE"       validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" db:"description"                   code:"DESCRIPTION" validate:"omitempty,max=2000" nullable:"true"`
	Status      *string `json:"status"      db:"status"                        code:"STATUS"      validate:"omitempty,goalstatus"`
	TargetDate  *string `json:"targetDate"  db:"target_date"                   code:"TARGET_DATE" validate:"omitempty,ymd,calendar" format:"date" nullable:"true"`
}

type chatPayload struct {
	Message *string `json:"message" db:"message" create:"required" code:"MESSAGE" validate:"omitempty,notblank,max=4000"`
	Role    *string `json:"role"    db:"role"                        code:"ROLE"    validate:"omitempty,chatrole"`
}

type meditationPayload struct {
	Duration  *int    `json:"duration"  db:"duration"  create:"required" code:"DURATION"  validate:"omitempty,gt=0,max=86400"`
	Type      *string `json:"type"      db:"type"      create:"required" code:"TYPE"      validate:"omitempty,meditationtype"`
	Completed *bool   `json:"completed" db:"completed"                   code:"COMPLETED"`
}

type breathingPayload struct {
	DurationSeconds *int    `json:"durationSeconds" db:"duration_seconds" create:"required" code:"DURATION_SECONDS" validate:"omitempty,gt=0,max=86400"`
	Technique       *string `json:"technique"       db:"technique"        create:"required" code:"TECHNIQUE"        validate:"omitempty,technique"`
}

type sleepPayload struct {
	HoursSlept *int    `json:"hoursSlept" db:"hours_slept" create:"required" code:"HOURS_SLEPT" validate:"omitempty,gt=0,max=24"`
	Quality    *int    `json:"quality"    db:"quality"     create:"required" code:"QUALITY"     validate:"omitempty,min=1,max=10"`
	SleepDate  *string `json:"sleepDate"  db:"sleep_date"  create:"required" code:"SLEEP_DATE"  validate:"omitempty,ymd,calendar" format:"date"`
	Notes      *string `json:"notes"      db:"notes"                         code:"NOTES"       validate:"omitempty,max=2000" nullable:"true"`
}

type stressPayload struct {
	StressLevel *int    `json:"stressLevel" db:"stress_level" create:"required" code:"STRESS_LEVEL" validate:"omitempty,min=1,max=10"`
	Notes       *string `json:"notes"       db:"notes"                          code:"NOTES"        validate:"omitempty,max=2000" nullable:"true"`
}

type activityPayload struct {
	ActivityName   *string `json:"activityName"   db:"activity_name"   create:"required" code:"ACTIVITY_NAME"   validate:"omitempty,notblank,max=200"`
	Completed      *bool   `json:"completed"      db:"completed"                         code:"COMPLETED"`
	CompletionDate *string `json:"completionDate" db:"completion_date"                   code:"COMPLETION_DATE" validate:"omitempty,ymd,calendar" format:"date"`
}
