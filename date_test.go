package kilat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestHTTPDateKnownVectors tests the formatter against known Unix
// seconds, including leap days, century boundaries, and pre-epoch
// values
func TestHTTPDateKnownVectors(t *testing.T) {
	cases := []struct {
		secs int64
		want string
	}{
		{0, "Thu, 01 Jan 1970 00:00:00 GMT"},
		{1, "Thu, 01 Jan 1970 00:00:01 GMT"},
		{59, "Thu, 01 Jan 1970 00:00:59 GMT"},
		{60, "Thu, 01 Jan 1970 00:01:00 GMT"},
		{86399, "Thu, 01 Jan 1970 23:59:59 GMT"},
		{86400, "Fri, 02 Jan 1970 00:00:00 GMT"},
		{-1, "Wed, 31 Dec 1969 23:59:59 GMT"},
		{-60, "Wed, 31 Dec 1969 23:59:00 GMT"},
		{-61, "Wed, 31 Dec 1969 23:58:59 GMT"},
		{-14182940, "Sun, 20 Jul 1969 20:17:40 GMT"},
		{-2208988800, "Mon, 01 Jan 1900 00:00:00 GMT"},
		{-2203891201, "Wed, 28 Feb 1900 23:59:59 GMT"},
		{-2203891200, "Thu, 01 Mar 1900 00:00:00 GMT"},
		{915148800, "Fri, 01 Jan 1999 00:00:00 GMT"},
		{946684799, "Fri, 31 Dec 1999 23:59:59 GMT"},
		{946684800, "Sat, 01 Jan 2000 00:00:00 GMT"},
		{951782399, "Mon, 28 Feb 2000 23:59:59 GMT"},
		{951782400, "Tue, 29 Feb 2000 00:00:00 GMT"},
		{951827696, "Tue, 29 Feb 2000 12:34:56 GMT"},
		{951868800, "Wed, 01 Mar 2000 00:00:00 GMT"},
		{1136073600, "Sun, 01 Jan 2006 00:00:00 GMT"},
		{1230768000, "Thu, 01 Jan 2009 00:00:00 GMT"},
		{1330516800, "Wed, 29 Feb 2012 12:00:00 GMT"},
		{1435708799, "Tue, 30 Jun 2015 23:59:59 GMT"},
		{1435708800, "Wed, 01 Jul 2015 00:00:00 GMT"},
		{1456704000, "Mon, 29 Feb 2016 00:00:00 GMT"},
		{1456790399, "Mon, 29 Feb 2016 23:59:59 GMT"},
		{1582956428, "Sat, 29 Feb 2020 06:07:08 GMT"},
		{1704067199, "Sun, 31 Dec 2023 23:59:59 GMT"},
		{1704067200, "Mon, 01 Jan 2024 00:00:00 GMT"},
		{1709164800, "Thu, 29 Feb 2024 00:00:00 GMT"},
		{1709251199, "Thu, 29 Feb 2024 23:59:59 GMT"},
		{2147483646, "Tue, 19 Jan 2038 03:14:06 GMT"},
		{2147483647, "Tue, 19 Jan 2038 03:14:07 GMT"},
		{2147483648, "Tue, 19 Jan 2038 03:14:08 GMT"},
		{4102444799, "Thu, 31 Dec 2099 23:59:59 GMT"},
		{13574563200, "Tue, 29 Feb 2400 00:00:00 GMT"},
		{13574649600, "Wed, 01 Mar 2400 00:00:00 GMT"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPDate(tc.secs), "secs=%d", tc.secs)
	}
}

// TestHTTPDateMatchesStdlib cross-checks the formatter against
// time.Time formatting over a spread of instants
func TestHTTPDateMatchesStdlib(t *testing.T) {
	for secs := int64(-4); secs < 5; secs++ {
		instant := secs * 997 * 86400 / 7
		want := time.Unix(instant, 0).UTC().Format("Mon, 02 Jan 2006 15:04:05") + " GMT"
		require.Equal(t, want, HTTPDate(instant), "secs=%d", instant)
	}
}

// TestAppendHTTPDate tests the append form
func TestAppendHTTPDate(t *testing.T) {
	got := AppendHTTPDate([]byte("x: "), 0)
	require.Equal(t, "x: Thu, 01 Jan 1970 00:00:00 GMT", string(got))
}

// TestAppendDateHeader tests the cached header line: correct shape and
// stable within the same second
func TestAppendDateHeader(t *testing.T) {
	line := string(appendDateHeader(nil))
	require.True(t, strings.HasPrefix(line, "date: "))
	require.True(t, strings.HasSuffix(line, " GMT\r\n"))
	require.Len(t, line, dateLineLen)

	again := string(appendDateHeader(nil))
	require.Len(t, again, dateLineLen)
}
