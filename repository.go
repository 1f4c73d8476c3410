package main

// DecisionRecord — строка журнала потреблённых решений.
type DecisionRecord struct {
	Token       string
	Origin      string
	Verdict     string
	ModeratorID int64
	PostLink    string
	CreatedAt   int64
}

// Repository — журнал решений модераторов. Журнал наблюдательный: workflow в
// него только пишет, корректность решений от его содержимого не зависит.
// Ожидающие кандидаты в него не попадают: они живут только в памяти процесса.
type Repository interface {
	SaveDecision(rec DecisionRecord)
	RecentDecisions(limit int) ([]DecisionRecord, error)
	CleanOldDecisions()
	Close() error
}
