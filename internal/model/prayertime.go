package model

// PrayerTime is one cached day of prayer times. Dates are YYYY-MM-DD,
// times are HH:MM, Hijri fields are passed through from the provider.
type PrayerTime struct {
	Date       string `db:"day"         json:"date"`
	Fajr       string `db:"fajr"        json:"fajr"`
	Sun        string `db:"sun"         json:"sun"`
	Dhuhr      string `db:"dhuhr"       json:"dhuhr"`
	Asr        string `db:"asr"         json:"asr"`
	Maghrib    string `db:"maghrib"     json:"maghrib"`
	Isha       string `db:"isha"        json:"isha"`
	HijriDate  string `db:"hijri_date"  json:"hijriDate,omitempty"`
	HijriMonth string `db:"hijri_month" json:"hijriMonth,omitempty"`
	HijriYear  string `db:"hijri_year"  json:"hijriYear,omitempty"`
}
