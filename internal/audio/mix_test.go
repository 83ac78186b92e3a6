package audio

import (
	"errors"
	"testing"
	"time"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

func timeline(windows ...time.Duration) recap.Timeline {
	var tl recap.Timeline
	var cursor time.Duration
	for i, d := range windows {
		tl.Windows = append(tl.Windows, recap.SegmentWindow{SegmentIndex: i, Start: cursor, End: cursor + d})
		tl.Plans = append(tl.Plans, recap.MotionPlan{PageIndex: i, Duration: d})
		cursor += d
	}
	tl.Total = cursor
	tl.Narrated = cursor
	return tl
}

func TestMixWholeTrackWithinTolerance(t *testing.T) {
	tl := timeline(10*time.Second, 10*time.Second, 10*time.Second)
	plan, err := Mix(Input{
		Timeline:  tl,
		Narration: []Clip{{Path: "n.mp3", Duration: 30*time.Second + 200*time.Millisecond, SegmentIndex: WholeTrack}},
		Music:     "m.mp3",
	})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if len(plan.Narration) != 1 || plan.Narration[0].Offset != 0 {
		t.Fatalf("placement = %+v", plan.Narration)
	}
	if len(plan.Ducked) != 1 || plan.Ducked[0].End != 30*time.Second {
		t.Fatalf("ducked = %+v", plan.Ducked)
	}
	if plan.VolumeAt(5*time.Second) != DefaultDuckVolume {
		t.Fatalf("music should be ducked under narration")
	}
}

func TestMixDesyncFails(t *testing.T) {
	tl := timeline(10 * time.Second)
	_, err := Mix(Input{
		Timeline:  tl,
		Narration: []Clip{{Path: "n.mp3", Duration: 10*time.Second + 500*time.Millisecond, SegmentIndex: WholeTrack}},
	})
	if !errors.Is(err, services.ErrAudioMix) {
		t.Fatalf("error = %v, want ErrAudioMix", err)
	}
}

func TestMixFloorExtensionDoesNotTriggerDesync(t *testing.T) {
	tl := timeline(6 * time.Second)
	tl.Narrated = 2 * time.Second
	tl.Extension = 4 * time.Second
	if _, err := Mix(Input{
		Timeline:  tl,
		Narration: []Clip{{Path: "n.mp3", Duration: 2 * time.Second, SegmentIndex: WholeTrack}},
	}); err != nil {
		t.Fatalf("Mix: %v", err)
	}
}

func TestMixSegmentClipsDuckAndRecoverAcrossGaps(t *testing.T) {
	tl := timeline(4*time.Second, 4*time.Second, 4*time.Second)
	tl.Narrated = 3*time.Second + 3500*time.Millisecond + 1500*time.Millisecond
	plan, err := Mix(Input{
		Timeline: tl,
		Narration: []Clip{
			{Path: "0.mp3", Duration: 3 * time.Second, SegmentIndex: 0},
			{Path: "1.mp3", Duration: 3500 * time.Millisecond, SegmentIndex: 1},
			{Path: "2.mp3", Duration: 1500 * time.Millisecond, SegmentIndex: 2},
		},
		Music: "m.mp3",
	})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if plan.Narration[1].Offset != 4*time.Second || plan.Narration[2].Offset != 8*time.Second {
		t.Fatalf("offsets = %+v", plan.Narration)
	}
	// 3s-4s gap is exactly 1s and merges; 7.5s-8s merges too.
	if len(plan.Ducked) != 1 || plan.Ducked[0] != (Interval{Start: 0, End: 9500 * time.Millisecond}) {
		t.Fatalf("ducked = %+v", plan.Ducked)
	}
	if plan.VolumeAt(10*time.Second) != DefaultAmbientVolume {
		t.Fatal("music should return to ambient after narration")
	}
}

func TestMixLongGapReturnsToAmbient(t *testing.T) {
	tl := timeline(5*time.Second, 5*time.Second)
	tl.Narrated = 4 * time.Second
	plan, err := Mix(Input{
		Timeline: tl,
		Narration: []Clip{
			{Path: "0.mp3", Duration: 2 * time.Second, SegmentIndex: 0},
			{Path: "1.mp3", Duration: 2 * time.Second, SegmentIndex: 1},
		},
		Music: "m.mp3",
	})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if len(plan.Ducked) != 2 || plan.VolumeAt(3*time.Second) != DefaultAmbientVolume {
		t.Fatalf("ducked = %+v", plan.Ducked)
	}
	want := "if(between(t,0.000,2.000)+between(t,5.000,7.000),0.08,0.3)"
	if got := plan.VolumeExpression(); got != want {
		t.Fatalf("VolumeExpression = %q want %q", got, want)
	}
}

func TestMixSegmentOverrunFails(t *testing.T) {
	tl := timeline(2 * time.Second)
	_, err := Mix(Input{
		Timeline:  tl,
		Narration: []Clip{{Path: "0.mp3", Duration: 3 * time.Second, SegmentIndex: 0}},
	})
	if !errors.Is(err, services.ErrAudioMix) {
		t.Fatalf("error = %v", err)
	}
}

func TestMixWithoutNarrationOrMusic(t *testing.T) {
	tl := timeline(5 * time.Second)
	musicOnly, err := Mix(Input{Timeline: tl, Music: "m.mp3"})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if len(musicOnly.Ducked) != 0 || musicOnly.VolumeExpression() != "0.3" {
		t.Fatalf("music-only plan = %+v", musicOnly)
	}

	narrationOnly, err := Mix(Input{Timeline: tl, Narration: []Clip{{Path: "n.mp3", Duration: 5 * time.Second, SegmentIndex: WholeTrack}}})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if narrationOnly.HasMusic() || len(narrationOnly.Ducked) != 0 {
		t.Fatalf("narration-only plan = %+v", narrationOnly)
	}

	silent, err := Mix(Input{Timeline: tl})
	if err != nil || !silent.Silent() {
		t.Fatalf("silent plan = %+v err=%v", silent, err)
	}
}
