package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"walletwatch/internal/core"
)

const (
	SubjectBudgetAlert   = "Budget Alert"
	SubjectMonthlyReport = "Your Monthly Financial Report"
)

// BudgetAlertData feeds the budget threshold email.
type BudgetAlertData struct {
	UserName       string
	AccountName    string
	BudgetAmount   decimal.Decimal
	TotalExpenses  decimal.Decimal
	PercentageUsed decimal.Decimal
}

// RenderBudgetAlert renders the budget alert HTML body.
func RenderBudgetAlert(d BudgetAlertData) string {
	remaining := d.BudgetAmount.Sub(d.TotalExpenses)
	return fmt.Sprintf(`
		<html>
		<body style="font-family: -apple-system, sans-serif; color: #333; background-color: #f6f9fc; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 5px; padding: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
				<h1 style="color: #1f2937; text-align: center;">Budget Alert</h1>
				<p>Hello %s,</p>
				<p>You&rsquo;ve used %s%% of your monthly budget on account <b>%s</b>.</p>
				<ul style="background-color: #f9fafb; border-radius: 5px; padding: 20px; list-style: none;">
					<li style="padding: 8px 0;">Budget Amount: %s</li>
					<li style="padding: 8px 0;">Spent So Far: %s</li>
					<li style="padding: 8px 0;">Remaining: %s</li>
				</ul>
				%s
			</div>
		</body>
		</html>
	`,
		d.UserName,
		d.PercentageUsed.StringFixed(1),
		d.AccountName,
		core.FormatUSD(d.BudgetAmount),
		core.FormatUSD(d.TotalExpenses),
		core.FormatUSD(remaining),
		renderFooter(),
	)
}

// MonthlyReportData feeds the monthly summary email.
type MonthlyReportData struct {
	UserName      string
	Month         string // e.g. "July 2025"
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	ByCategory    map[string]decimal.Decimal
	Insights      []string
}

// RenderMonthlyReport renders the monthly report HTML body. Category
// rows are sorted by name so the output is stable.
func RenderMonthlyReport(d MonthlyReportData) string {
	net := d.TotalIncome.Sub(d.TotalExpenses)

	categories := make([]string, 0, len(d.ByCategory))
	for name := range d.ByCategory {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	var rows strings.Builder
	for _, name := range categories {
		rows.WriteString(fmt.Sprintf(
			`<div style="display: flex; justify-content: space-between; padding: 12px 0; border-bottom: 1px solid #e5e7eb;">
				<span>%s</span><span>%s</span>
			</div>`,
			name, core.FormatUSD(d.ByCategory[name])))
	}

	var insights strings.Builder
	for _, insight := range d.Insights {
		insights.WriteString(fmt.Sprintf(`<p style="color: #4b5563;">&bull; %s</p>`, insight))
	}

	return fmt.Sprintf(`
		<html>
		<body style="font-family: -apple-system, sans-serif; color: #333; background-color: #f6f9fc; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 5px; padding: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
				<h1 style="color: #1f2937; text-align: center;">Monthly Financial Report</h1>
				<p>Hello %s,</p>
				<p>Here&rsquo;s your financial summary for %s:</p>
				<ul style="background-color: #f9fafb; border-radius: 5px; padding: 20px; list-style: none;">
					<li style="padding: 8px 0;">Total Income: %s</li>
					<li style="padding: 8px 0;">Total Expenses: %s</li>
					<li style="padding: 8px 0;">Net: %s</li>
				</ul>
				<div style="margin-top: 32px; padding: 20px; background-color: #f9fafb; border-radius: 5px; border: 1px solid #e5e7eb;">
					<h2 style="color: #1f2937;">Expenses by Category</h2>
					%s
				</div>
				<div style="margin-top: 32px; padding: 20px; background-color: #f9fafb; border-radius: 5px; border: 1px solid #e5e7eb;">
					<h2 style="color: #1f2937;">Insights</h2>
					%s
				</div>
				%s
			</div>
		</body>
		</html>
	`,
		d.UserName,
		d.Month,
		core.FormatUSD(d.TotalIncome),
		core.FormatUSD(d.TotalExpenses),
		core.FormatUSD(net),
		rows.String(),
		insights.String(),
		renderFooter(),
	)
}

func renderFooter() string {
	return `<p style="color: #6b7280; font-size: 14px; text-align: center; margin-top: 32px; padding-top: 16px; border-top: 1px solid #e5e7eb;">
		Thank you for using WalletWatch. Keep tracking your finances for better financial health!
	</p>`
}
