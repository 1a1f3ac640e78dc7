package kilat

import (
	"sync/atomic"
	"time"
)

// RFC 7231 IMF-fixdate serialiser over the leap-year-corrected civil
// calendar. The day/month arithmetic follows the musl __secs_to_tm
// approach: days are counted from 2000-03-01 (the "leapoch") so leap
// days fall at the end of the cycle.

const httpDateLen = len("Mon, 00 Jan 0000 00:00:00 GMT")
const dateLineLen = len("date: ") + httpDateLen + len("\r\n")

var httpDateBase = []byte("Mon, 00 Jan 0000 00:00:00 GMT")

const (
	secsPerMin  = 60
	secsPerHour = 3600
	secsPerDay  = 86400

	leapoch     = 11017
	daysPer400Y = 365*400 + 97
	daysPer100Y = 365*100 + 24
	daysPer4Y   = 365*4 + 1
)

var (
	wdayNames  = []byte("MonTueWedThuFriSatSun")
	monthNames = []byte("JanFebMarAprMayJunJulAugSepOctNovDec")
	// Month lengths starting from March.
	monthDays = [12]int64{31, 30, 31, 30, 31, 31, 30, 31, 30, 31, 31, 29}
)

// divmod is floored division: the remainder is always in [0, d).
func divmod(n, d int64) (int64, int64) {
	q := n / d
	r := n % d
	if r < 0 {
		q--
		r += d
	}
	return q, r
}

// formatHTTPDate writes the IMF-fixdate for the given Unix second into
// buf, which must be at least httpDateLen bytes.
func formatHTTPDate(buf []byte, secs int64) {
	copy(buf, httpDateBase)

	days, secsOfDay := divmod(secs, secsPerDay)
	days -= leapoch

	_, wday := divmod(3+days, 7)
	if wday == 0 {
		wday = 7
	}
	woff := (wday - 1) * 3
	copy(buf[0:3], wdayNames[woff:woff+3])

	qcCycles, remdays := divmod(days, daysPer400Y)

	cCycles := remdays / daysPer100Y
	if cCycles == 4 {
		cCycles--
	}
	remdays -= cCycles * daysPer100Y

	qCycles := remdays / daysPer4Y
	if qCycles == 25 {
		qCycles--
	}
	remdays -= qCycles * daysPer4Y

	remyears := remdays / 365
	if remyears == 4 {
		remyears--
	}
	remdays -= remyears * 365

	year := 2000 + remyears + 4*qCycles + 100*cCycles + 400*qcCycles

	var monIdx int64
	for monIdx = 0; monIdx < 12; monIdx++ {
		if remdays < monthDays[monIdx] {
			break
		}
		remdays -= monthDays[monIdx]
	}

	mday := remdays + 1
	mon := monIdx + 3
	if mon > 12 {
		year++
		mon -= 12
	}

	write2d(buf[5:7], mday)
	moff := (mon - 1) * 3
	copy(buf[8:11], monthNames[moff:moff+3])
	write4d(buf[12:16], year)

	hour, rem := divmod(secsOfDay, secsPerHour)
	minute, sec := divmod(rem, secsPerMin)
	write2d(buf[17:19], hour)
	write2d(buf[20:22], minute)
	write2d(buf[23:25], sec)
}

func write2d(buf []byte, v int64) {
	buf[0] = '0' + byte(v/10)
	buf[1] = '0' + byte(v%10)
}

func write4d(buf []byte, v int64) {
	buf[0] = '0' + byte(v/1000)
	buf[1] = '0' + byte(v/100%10)
	buf[2] = '0' + byte(v/10%10)
	buf[3] = '0' + byte(v%10)
}

// AppendHTTPDate appends the IMF-fixdate for the given Unix second to dst.
func AppendHTTPDate(dst []byte, secs int64) []byte {
	var b [httpDateLen]byte
	formatHTTPDate(b[:], secs)
	return append(dst, b[:]...)
}

// HTTPDate returns the IMF-fixdate string for the given Unix second,
// e.g. "Thu, 01 Jan 1970 00:00:00 GMT".
func HTTPDate(secs int64) string {
	var b [httpDateLen]byte
	formatHTTPDate(b[:], secs)
	return string(b[:])
}

// dateLine is a formatted "date: ...\r\n" header line plus the second
// it was formatted for.
type dateLine struct {
	sec  int64
	line [dateLineLen]byte
}

var cachedDate atomic.Pointer[dateLine]

// appendDateHeader appends a "date: <IMF-fixdate>\r\n" line for the
// current second. The line is reformatted at most once per second; the
// cache is a lock-free pointer swap so concurrent workers never block
// on the hot path.
func appendDateHeader(dst []byte) []byte {
	now := time.Now().Unix()
	e := cachedDate.Load()
	if e == nil || e.sec != now {
		ne := &dateLine{sec: now}
		copy(ne.line[:], "date: ")
		formatHTTPDate(ne.line[6:6+httpDateLen], now)
		copy(ne.line[6+httpDateLen:], "\r\n")
		cachedDate.Store(ne)
		e = ne
	}
	return append(dst, e.line[:]...)
}
