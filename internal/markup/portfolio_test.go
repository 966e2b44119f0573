package markup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const holdingsFixture = `<tbody id="stanRachunku:j_idt140_data" class="ui-datatable-data ui-widget-content">
<tr data-ri="0" class="ui-widget-content ui-datatable-even" role="row">
	<td role="gridcell"><span id="stanRachunku:j_idt140:0:nazwaSkrocona" style="white-space: nowrap;">ZXCV4567</span>
		<script id="stanRachunku:j_idt140:0:j_idt154_s" type="text/javascript">$(function () { PrimeFaces.cw("ExtTooltip", "widget_stanRachunku_j_idt140_0_j_idt154", { id: "stanRachunku:j_idt140:0:j_idt154", global: false, shared: false, autoShow: false, forTarget: "stanRachunku:j_idt140:0:nazwaSkrocona", content: { text: "okres 1 oprocentowanie 7.5%<\/br>" }, style: { widget: true } }); });</script>
	</td>
	<td role="gridcell"><span>5253</span></td>
	<td role="gridcell"><span>53</span></td>
	<td role="gridcell"><span>123 000,00 PLN</span></td>
	<td role="gridcell"><span>456 111,22 PLN</span></td>
	<td role="gridcell"><span>2074-10-25</span></td>
</tr>
<tr data-ri="1" class="ui-widget-content ui-datatable-odd" role="row">
	<td role="gridcell"><span id="stanRachunku:j_idt140:1:nazwaSkrocona" style="white-space: nowrap;">ASDF1234</span>
		<script id="stanRachunku:j_idt140:1:j_idt154_s" type="text/javascript">$(function () { PrimeFaces.cw("ExtTooltip", "widget_stanRachunku_j_idt140_1_j_idt154", { id: "stanRachunku:j_idt140:1:j_idt154", global: false, shared: false, autoShow: false, forTarget: "stanRachunku:j_idt140:1:nazwaSkrocona", content: { text: "okres 1 oprocentowanie 7.25%<\/br>okres 2 oprocentowanie 7.5%<\/br>" }, style: { widget: true } }); });</script>
	</td>
	<td role="gridcell"><span>999</span></td>
	<td role="gridcell"><span>998</span></td>
	<td role="gridcell"><span>456 789,99 PLN</span></td>
	<td role="gridcell"><span>987 654,60 PLN</span></td>
	<td role="gridcell"><span>3011-01-01</span></td>
</tr>
</tbody>`

func TestOwnedBonds(t *testing.T) {
	doc := parseDoc(t, "<table>"+holdingsFixture+"</table>")
	bonds, err := OwnedBonds(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(bonds) != 2 {
		t.Fatalf("got %d bonds, want 2", len(bonds))
	}

	first := bonds[0]
	if first.IssueCode != "ZXCV4567" {
		t.Errorf("IssueCode = %q", first.IssueCode)
	}
	if first.Available != 5253 || first.Blocked != 53 {
		t.Errorf("Available/Blocked = %d/%d", first.Available, first.Blocked)
	}
	if want := decimal.RequireFromString("123000.00"); !first.Nominal.Amount.Equal(want) {
		t.Errorf("Nominal = %s", first.Nominal.Amount)
	}
	if want := decimal.RequireFromString("456111.22"); !first.Current.Amount.Equal(want) {
		t.Errorf("Current = %s", first.Current.Amount)
	}
	if want := time.Date(2074, 10, 25, 0, 0, 0, 0, time.UTC); !first.Maturity.Equal(want) {
		t.Errorf("Maturity = %s", first.Maturity)
	}
	if len(first.Schedule) != 1 || !first.CurrentRate().Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("Schedule = %+v", first.Schedule)
	}

	second := bonds[1]
	if second.IssueCode != "ASDF1234" {
		t.Errorf("IssueCode = %q", second.IssueCode)
	}
	if len(second.Schedule) != 2 {
		t.Fatalf("Schedule length = %d, want 2", len(second.Schedule))
	}
	if !second.Schedule[0].Rate.Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("first period rate = %s", second.Schedule[0].Rate)
	}
	if !second.CurrentRate().Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("CurrentRate = %s", second.CurrentRate())
	}
}

func TestOwnedBondsEmptyTable(t *testing.T) {
	doc := parseDoc(t, `<table><tbody id="stanRachunku:j_idt140_data">
<tr class="ui-widget-content ui-datatable-empty-message" role="row"><td colspan="6" class="ui-datatable-empty-message">Brak danych</td></tr>
</tbody></table>`)
	bonds, err := OwnedBonds(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(bonds) != 0 {
		t.Errorf("got %d bonds, want 0", len(bonds))
	}
}

func TestOwnedBondsFromFragment(t *testing.T) {
	fragment := `<tr role="row">
	<td role="gridcell"><span id="stanRachunku:j_idt140:0:nazwaSkrocona">EDO0534</span>
		<script type="text/javascript">PrimeFaces.cw("ExtTooltip", "w", { forTarget: "stanRachunku:j_idt140:0:nazwaSkrocona", content: { text: "okres 1 oprocentowanie 7%<\/br>" } });</script>
	</td>
	<td role="gridcell"><span>10</span></td>
	<td role="gridcell"><span>0</span></td>
	<td role="gridcell"><span>1 000,00 PLN</span></td>
	<td role="gridcell"><span>1 001,00 PLN</span></td>
	<td role="gridcell"><span>2034-05-01</span></td>
</tr>`
	bonds, err := OwnedBondsFromFragment(fragment)
	if err != nil {
		t.Fatal(err)
	}
	if len(bonds) != 1 || bonds[0].IssueCode != "EDO0534" {
		t.Fatalf("bonds = %+v", bonds)
	}
}

func TestParseScheduleRejectsGap(t *testing.T) {
	_, err := ParseSchedule("okres 1 oprocentowanie 7%\nokres 3 oprocentowanie 7%")
	if err == nil {
		t.Error("expected error for non-contiguous periods")
	}
}

func TestParseScheduleRejectsWrongStart(t *testing.T) {
	_, err := ParseSchedule("okres 2 oprocentowanie 7%")
	if err == nil {
		t.Error("expected error for schedule not starting at period 1")
	}
}

func TestParseScheduleRejectsGarbage(t *testing.T) {
	_, err := ParseSchedule("coś innego")
	if err == nil {
		t.Error("expected error for unrecognized line")
	}
}

func TestPortfolioTableID(t *testing.T) {
	doc := parseDoc(t, "<table>"+holdingsFixture+"</table>")
	id, err := PortfolioTableID(doc)
	if err != nil {
		t.Fatal(err)
	}
	if id != "stanRachunku:j_idt140" {
		t.Errorf("PortfolioTableID = %q", id)
	}
}
