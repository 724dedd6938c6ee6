package model

type Stats struct {
	TotalInteractions     int64                   `json:"total_interactions"`
	TotalUsers            int64                   `json:"total_users"`
	AverageLuck           float64                 `json:"average_luck"`
	SuperstitionBreakdown []SuperstitionBreakdown `json:"superstition_breakdown"`
}

type SuperstitionBreakdown struct {
	Superstition string  `db:"superstition" json:"superstition"`
	Total        int64   `db:"total" json:"total"`
	Fortunes     int64   `db:"fortunes" json:"fortunes"`
	Misfortunes  int64   `db:"misfortunes" json:"misfortunes"`
	FortuneRate  float64 `db:"-" json:"fortune_rate"`
}
