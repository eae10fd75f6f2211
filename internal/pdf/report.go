package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"teamhub/internal/models"
)

// Generator: интерфейс (удобно мокать в тестах)
type Generator interface {
	ProjectReport(p *models.ProjectDetail, now time.Time) ([]byte, error)
}

// ReportGenerator renders project status reports. With an empty FontPath it falls back
// to the core Helvetica font, which only covers Latin-1.
type ReportGenerator struct {
	FontPath string
	fontName string
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	name := "Helvetica"
	if fontPath != "" {
		name = "DejaVu"
	}
	return &ReportGenerator{FontPath: fontPath, fontName: name}
}

func (g *ReportGenerator) ProjectReport(p *models.ProjectDetail, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s status report", p.Name), true)
	pdf.SetAuthor("TeamHub", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	g.addFont(pdf)
	tr := g.translator(pdf)

	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, tr(p.Name), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 12)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Codename %s  -  generated %s", p.Codename, now.Format("02.01.2006 15:04"))), "", 1, "C", false, 0, "")
	g.hr(pdf)

	// ===== Сводка
	g.sectionTitle(pdf, "Summary")
	g.kvLine(pdf, tr, "Status", string(p.Status))
	g.kvLine(pdf, tr, "Progress", fmt.Sprintf("%d%%", p.Progress))
	g.kvLine(pdf, tr, "Start", p.StartDate.Format("02.01.2006"))
	if p.EndDate != nil {
		g.kvLine(pdf, tr, "End", p.EndDate.Format("02.01.2006"))
	}
	g.kvLine(pdf, tr, "Owner", p.CreatedBy.Name)
	if len(p.Tags) > 0 {
		g.kvLine(pdf, tr, "Tags", strings.Join(p.Tags, ", "))
	}
	pdf.SetFont(g.fontName, "", 11)
	pdf.MultiCell(0, 6, tr(p.Description), "", "L", false)
	pdf.Ln(2)
	g.hr(pdf)

	// ===== Команда
	g.sectionTitle(pdf, fmt.Sprintf("Members (%d)", p.MemberCount))
	for _, m := range p.Members {
		g.kvLine(pdf, tr, string(m.Role), fmt.Sprintf("%s <%s>", m.User.Name, m.User.Email))
	}
	pdf.Ln(2)
	g.hr(pdf)

	// ===== Задачи
	g.sectionTitle(pdf, fmt.Sprintf("Tasks (%d)", len(p.Tasks)))
	g.taskTable(pdf, tr, p.Tasks)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render project report: %w", err)
	}
	return buf.Bytes(), nil
}

var taskColumns = []struct {
	title string
	width float64
}{
	{"Title", 70}, {"Status", 25}, {"Priority", 20}, {"Assignee", 35}, {"Done", 20},
}

func (g *ReportGenerator) taskTable(pdf *gofpdf.Fpdf, tr func(string) string, tasks []models.TaskView) {
	pdf.SetFont(g.fontName, "B", 10)
	for _, col := range taskColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(g.fontName, "", 10)
	for _, t := range tasks {
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Name
		}
		status := string(t.Status)
		if t.IsOverdue {
			status += " (!)"
		}
		cells := []string{
			truncate(t.Title, 40), status, string(t.Priority), truncate(assignee, 20),
			fmt.Sprintf("%d%%", t.CompletionPercentage),
		}
		for i, col := range taskColumns {
			pdf.CellFormat(col.width, 6, tr(cells[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ReportGenerator) kvLine(pdf *gofpdf.Fpdf, tr func(string) string, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, tr(key+":"), "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(val), "", 1, "L", false, 0, "")
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *ReportGenerator) addFont(pdf *gofpdf.Fpdf) {
	if g.FontPath == "" {
		return
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}

// translator maps UTF-8 to the core font's code page; UTF-8 fonts need no mapping.
func (g *ReportGenerator) translator(pdf *gofpdf.Fpdf) func(string) string {
	if g.FontPath != "" {
		return func(s string) string { return s }
	}
	return pdf.UnicodeTranslatorFromDescriptor("")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
