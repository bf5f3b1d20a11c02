package httpapi

import (
	"time"

	"lgprobe/internal/probe"
	"lgprobe/pkg/types"
)

// StatusFromState converts a registry state into its JSON view.
func StatusFromState(st probe.State) types.ProbeStatus {
	out := types.ProbeStatus{
		ID:               st.ID,
		RunID:            st.RunID.String(),
		Label:            st.Label,
		URL:              st.URL,
		Phase:            string(st.Phase),
		BytesReceived:    st.BytesReceived,
		TotalBytes:       st.TotalBytes,
		Percent:          st.Percent(),
		InstantaneousBPS: st.InstantaneousSpeed,
		AverageBPS:       st.AverageSpeed,
		StartedAtMS:      unixMilli(st.StartedAt),
		UpdatedAtMS:      unixMilli(st.UpdatedAt),
		FinishedAtMS:     unixMilli(st.FinishedAt),
		ElapsedSeconds:   st.Elapsed().Seconds(),
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
		out.ErrorKind = string(st.Err.Kind)
	}
	return out
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
