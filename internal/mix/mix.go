package mix

import (
	"fmt"
	"strings"
)

const (
	DefaultBalance      = 50
	DefaultSampleRate   = 44100
	DefaultOutputPrefix = "processed_"
	DefaultQuality      = "0"
)

// Item is one input unit submitted for processing.
type Item struct {
	Name    string
	Payload []byte
	// Index is the 0-based submission position.
	Index int
}

// Params holds the batch-wide mix settings shared by every job.
type Params struct {
	// Balance weights the primary against its companions, 0..100.
	Balance      int
	SampleRate   int
	OutputPrefix string
	Quality      string
}

// DefaultParams returns the settings used when the caller supplies none.
func DefaultParams() Params {
	return Params{
		Balance:      DefaultBalance,
		SampleRate:   DefaultSampleRate,
		OutputPrefix: DefaultOutputPrefix,
		Quality:      DefaultQuality,
	}
}

// withDefaults fills zero-valued fields except Balance, where zero is meaningful.
// An empty prefix would make the output name collide with the primary input.
func (p Params) withDefaults() Params {
	if p.OutputPrefix == "" {
		p.OutputPrefix = DefaultOutputPrefix
	}
	if p.SampleRate <= 0 {
		p.SampleRate = DefaultSampleRate
	}
	if strings.TrimSpace(p.Quality) == "" {
		p.Quality = DefaultQuality
	}
	return p
}

// Job is the unit of work derived from one Item. Jobs are immutable once built.
type Job struct {
	Primary    Item
	Companions []Item
	Params     Params
}

// BuildJobs derives one job per item in submission order. Companions keep
// submission order and never include the primary.
func BuildJobs(items []Item, params Params) []Job {
	params = params.withDefaults()
	jobs := make([]Job, 0, len(items))
	for i, item := range items {
		companions := make([]Item, 0, len(items)-1)
		for j, other := range items {
			if j != i {
				companions = append(companions, other)
			}
		}
		jobs = append(jobs, Job{Primary: item, Companions: companions, Params: params})
	}
	return jobs
}

// OutputName is the scratch name of the job's rendered track.
func (j Job) OutputName() string {
	return j.Params.withDefaults().OutputPrefix + j.Primary.Name
}

// InputNames lists the staged names in ffmpeg input order.
func (j Job) InputNames() []string {
	names := make([]string, 0, len(j.Companions)+1)
	names = append(names, j.Primary.Name)
	for _, c := range j.Companions {
		names = append(names, c.Name)
	}
	return names
}

// Gains maps the balance to the primary and companion volume factors.
// A balance of 50 leaves both sides at unity.
func Gains(balance int) (own, companions float64) {
	balance = min(max(balance, 0), 100)
	own = min(1, 2*float64(100-balance)/100)
	companions = min(1, 2*float64(balance)/100)
	return own, companions
}

const downmix = "aformat=channel_layouts=stereo,pan=mono|c0=0.5*c0+0.5*c1"

// FilterGraph builds the -filter_complex value for the job.
func FilterGraph(job Job) string {
	params := job.Params.withDefaults()
	own, comp := Gains(params.Balance)

	var b strings.Builder
	fmt.Fprintf(&b, "[0:a]%s,volume=%s[left];", downmix, formatGain(own))
	if n := len(job.Companions); n > 0 {
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, "[%d:a]", i)
		}
		fmt.Fprintf(&b, "amix=inputs=%d:dropout_transition=0:normalize=0,%s,volume=%s[right];", n, downmix, formatGain(comp))
	} else {
		fmt.Fprintf(&b, "anullsrc=r=%d:cl=mono[right];", params.SampleRate)
	}
	b.WriteString("[left][right]amerge=inputs=2[out]")
	return b.String()
}

// Args builds the ffmpeg argument list, inputs and output resolved by dir.
func Args(job Job, resolve func(name string) string) []string {
	params := job.Params.withDefaults()
	names := job.InputNames()
	args := make([]string, 0, 2*len(names)+8)
	for _, name := range names {
		args = append(args, "-i", resolve(name))
	}
	args = append(args,
		"-filter_complex", FilterGraph(job),
		"-map", "[out]",
		"-q:a", params.Quality,
		resolve(job.OutputName()),
	)
	return args
}

func formatGain(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
