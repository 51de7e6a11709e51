package models

import (
	"math"
	"time"
)

type Review struct {
	ID         int64     `json:"id"`
	RideID     int64     `json:"rideId"`
	ReviewerID int64     `json:"reviewerId"`
	RevieweeID int64     `json:"revieweeId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RatingSummary is the aggregate stored on the reviewee.
type RatingSummary struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

// Summarize computes the mean rating rounded to one decimal.
func Summarize(ratings []int) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return RatingSummary{
		Rating:      RoundRating(float64(sum) / float64(len(ratings))),
		ReviewCount: len(ratings),
	}
}

func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
