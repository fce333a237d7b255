package participant

import "time"

// ClueCategory classifies what a clue hints at.
type ClueCategory string

const (
	ClueBlood      ClueCategory = "blood"
	ClueHoly       ClueCategory = "holy"
	ClueSuspicious ClueCategory = "suspicious"
	ClueGoodDeed   ClueCategory = "good_deed"
	ClueEmergency  ClueCategory = "emergency"
	ClueWorld      ClueCategory = "world"
)

// Clue is immutable once created.
type Clue struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Category    ClueCategory `json:"category"`
	Credibility float64      `json:"credibility"`
	Source      string       `json:"source"`
	TargetID    string       `json:"target_participant_id"`
	DayCreated  int          `json:"day_created"`
	RevealsRole bool         `json:"reveals_role"`
}

// Accusation is created by an explicit player action and never mutated.
type Accusation struct {
	ID                string   `json:"id"`
	AccuserID         string   `json:"accuser_id"`
	AccusedID         string   `json:"accused_id"`
	Reason            string   `json:"reason"`
	Credibility       float64  `json:"credibility"`
	Day               int      `json:"day"`
	SupportingClueIDs []string `json:"supporting_clue_ids"`
}

// MovementSample is one observed position.
type MovementSample struct {
	Position Position  `json:"position"`
	T        time.Time `json:"t"`
}

// DialogueSample keeps only the shape of an utterance, never its text.
type DialogueSample struct {
	NPCID        string    `json:"npc_id"`
	TextLength   int       `json:"text_length"`
	IsQuestion   bool      `json:"is_question"`
	ResponseTime float64   `json:"response_time"`
	T            time.Time `json:"t"`
}
