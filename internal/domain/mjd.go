package domain

import "time"

const (
	// JD_UNIX_EPOCH is the Julian date of 1970-01-01T00:00:00Z
	JD_UNIX_EPOCH = 2440587.5
	// JD_MJD_OFFSET converts a Julian date into a modified Julian date
	JD_MJD_OFFSET = 2400000.5
	// MJD_UNIX_EPOCH is the modified Julian date of 1970-01-01T00:00:00Z
	MJD_UNIX_EPOCH = JD_UNIX_EPOCH - JD_MJD_OFFSET

	secondsPerDay = 86400.0
)

// TimeToMJD converts a time into a modified Julian date
func TimeToMJD(t time.Time) float64 {
	seconds := float64(t.UTC().UnixNano()) / float64(time.Second)
	return MJD_UNIX_EPOCH + seconds/secondsPerDay
}

// MJDToTime converts a modified Julian date into a UTC time
func MJDToTime(mjd float64) time.Time {
	nanos := (mjd - MJD_UNIX_EPOCH) * secondsPerDay * float64(time.Second)
	return time.Unix(0, int64(nanos)).UTC()
}

// JDToMJD converts a Julian date into a modified Julian date
func JDToMJD(jd float64) float64 {
	return jd - JD_MJD_OFFSET
}

// DaysAgoMJD returns the modified Julian date n days before now
func DaysAgoMJD(now time.Time, days float64) float64 {
	return TimeToMJD(now) - days
}
