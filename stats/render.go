package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

var lang language.Tag = language.English

// SimReportRender 定義輸出行為
type SimReportRender interface {
	Write(w io.Writer, r *SimReport) error
}

// RenderFor 依格式名稱取得對應的 render：table / json / yaml。
// table 需要用時，由 elapsed 帶入
func RenderFor(format string, elapsed time.Duration) (SimReportRender, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return &TableSimReportRender{Elapsed: elapsed}, nil
	case "json":
		return &JsonSimReportRender{}, nil
	case "yaml", "yml":
		return &YAMLSimReportRender{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// StdOut 以表格輸出到 stdout
func (s *SimReport) StdOut(ut time.Duration) {
	_ = s.WriteWith(os.Stdout, &TableSimReportRender{Elapsed: ut})
}

// Json渲染
type JsonSimReportRender struct {
	Indent bool
}

func (jr *JsonSimReportRender) Write(w io.Writer, r *SimReport) error {
	enc := json.NewEncoder(w)
	if jr.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(r)
}

// YAML渲染：最內層一維陣列輸出成 flow style [a, b, c]
type YAMLSimReportRender struct{}

func (yr *YAMLSimReportRender) Write(w io.Writer, r *SimReport) error {
	var node yaml.Node
	if err := node.Encode(r); err != nil {
		return err
	}
	flowInnerSequences(&node)
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

// flowInnerSequences 回傳 n 是否為 sequence，讓父層知道自己是不是外層維度
func flowInnerSequences(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	nested := false
	for _, c := range n.Content {
		if flowInnerSequences(c) {
			nested = true
		}
	}
	if n.Kind != yaml.SequenceNode {
		return false
	}
	if !nested {
		n.Style = yaml.FlowStyle
	}
	return true
}

// TableSimReportRender 終端機表格
type TableSimReportRender struct {
	Elapsed time.Duration
}

func (tr *TableSimReportRender) Write(w io.Writer, r *SimReport) error {
	p := message.NewPrinter(lang)
	var sb strings.Builder
	sb.WriteString(fmtElapsed(p, tr.Elapsed, r.Summary.Spins))
	sb.WriteString(fmtTable(p, r.Summary.GameName, r.basicRows()))
	sb.WriteByte('\n')
	sb.WriteString(fmtTable(p, "Endings", r.endingRows()))
	sb.WriteByte('\n')
	sb.WriteString(fmtReached(r.Levels))
	_, err := io.WriteString(w, sb.String())
	return err
}

type row struct {
	key string
	val string
}

func fmtElapsed(p *message.Printer, d time.Duration, spins int) string {
	d = d.Abs()
	sec := max(d.Seconds(), 1e-9)
	sps := int(float64(spins) / sec)
	var used string
	switch {
	case d < time.Minute:
		used = fmt.Sprintf("%.2f seconds", sec)
	case d < time.Hour:
		used = fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		used = fmt.Sprintf("%dh:%dm:%ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
	return p.Sprintf("used: %s\nsps : %d spins/sec\n", used, sps)
}

func (s *SimReport) basicRows() []row {
	p := message.NewPrinter(lang)
	sm := s.Summary
	return []row{
		{"Game Name", sm.GameName},
		{"Seed", fmt.Sprintf("%d", sm.Seed)},
		{"Sessions", p.Sprintf("%d", sm.Sessions)},
		{"Total Spins", p.Sprintf("%d", sm.Spins)},
		{"Hit Rate", p.Sprintf("%.2f %%", 100.0*sm.HitRate)},
		{"Score / Spin", p.Sprintf("%.3f", sm.SpinMean)},
		{"Total Mean", p.Sprintf("%.2f", sm.TotalMean)},
		{"Total STD", p.Sprintf("%.2f", sm.TotalStd)},
		{"Total Median", p.Sprintf("%.0f [%.0f,%.0f]", sm.TotalMed, sm.TotalMedCI.Lo, sm.TotalMedCI.Hi)},
		{"Total P10/P90", p.Sprintf("%.0f / %.0f", sm.TotalP10, sm.TotalP90)},
		{"Total Max", p.Sprintf("%d", sm.TotalMax)},
		{"Spins / Game", p.Sprintf("%.2f", sm.SpinsMean)},
		{"Level Mean", p.Sprintf("%.2f", sm.LevelMean)},
		{"Level Max", p.Sprintf("%d", sm.LevelMax)},
	}
}

func (s *SimReport) endingRows() []row {
	e := s.Endings
	return []row{
		{"Instant Loss", fmtPointPct(e.InstantLossRate)},
		{"Out Of Spins", fmtPointPct(e.OutOfSpinsRate)},
		{"Truncated", fmtPointPct(e.TruncatedRate)},
		{"Immunity Saved", fmtPointPct(e.ImmunitySaveRate)},
	}
}

// fmtReached 只列到比例為 0 的關卡為止
func fmtReached(l *LevelReport) string {
	var sb strings.Builder
	sb.WriteString("Reached Level\n")
	for i, r := range l.Reached {
		if r.Hat == 0 {
			break
		}
		fmt.Fprintf(&sb, "  >= %-4d : %s\n", i+1, fmtPointPct(r))
	}
	return sb.String()
}

func fmtTable(p *message.Printer, title string, rows []row) string {
	kw, vw := 0, 0
	for _, r := range rows {
		kw = max(kw, runewidth.StringWidth(r.key))
		vw = max(vw, runewidth.StringWidth(r.val))
	}
	inner := kw + vw + 5
	pad := max(inner-runewidth.StringWidth(title), 0)
	divider := "+" + strings.Repeat("-", kw+2) + "+" + strings.Repeat("-", vw+2) + "+\n"

	var sb strings.Builder
	sb.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	sb.WriteString(p.Sprintf("|%s%s%s|\n", strings.Repeat(" ", pad/2), title, strings.Repeat(" ", pad-pad/2)))
	sb.WriteString(divider)
	for _, r := range rows {
		sb.WriteString("| " + runewidth.FillRight(r.key, kw) + " | " + runewidth.FillRight(r.val, vw) + " |\n")
	}
	sb.WriteString(divider)
	return sb.String()
}

func fmtPointPct(ps PointStat) string {
	return fmt.Sprintf("%.2f%% [%.2f%%, %.2f%%]", ps.Hat*100, ps.CI.Lo*100, ps.CI.Hi*100)
}
