package e2e

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite provides a test suite for end-to-end tests
type E2ETestSuite struct {
	suite.Suite
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	require.NoError(suite.T(), err, "could not launch playwright")
	suite.pw = pw

	browser, err := pw.Chromium.Launch()
	require.NoError(suite.T(), err, "could not launch chromium")
	suite.browser = browser

	suite.expect = playwright.NewPlaywrightAssertions()
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	if suite.browser != nil {
		suite.browser.Close()
	}
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

// SetupTest runs before each test
func (suite *E2ETestSuite) SetupTest() {
	page, err := suite.browser.NewPage()
	require.NoError(suite.T(), err, "could not create page")
	suite.page = page

	_, err = suite.page.Goto(appURL)
	require.NoError(suite.T(), err, "could not navigate to app")
}

// TearDownTest runs after each test
func (suite *E2ETestSuite) TearDownTest() {
	if suite.page != nil {
		suite.page.Close()
	}
}

func (suite *E2ETestSuite) login(username, password string) {
	// Wait for login form
	err := suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "login form not visible")

	// Fill in credentials
	err = suite.page.Locator("input[name=username]").Fill(username)
	require.NoError(suite.T(), err, "failed to fill username")

	err = suite.page.Locator("input[name=password]").Fill(password)
	require.NoError(suite.T(), err, "failed to fill password")

	// Submit login
	err = suite.page.Locator(".login-btn").Click()
	require.NoError(suite.T(), err, "failed to click login")

	// Wait for redirect to dashboard
	err = suite.expect.Locator(suite.page.Locator(".list-screen")).ToBeVisible()
	require.NoError(suite.T(), err, "did not redirect to dashboard after login")
}

func (suite *E2ETestSuite) fillExpense(description, amount, category string) {
	err := suite.expect.Locator(suite.page.Locator("#expense-form")).ToBeVisible()
	require.NoError(suite.T(), err, "expense form not visible")

	err = suite.page.Locator("input[name=description]").Fill(description)
	require.NoError(suite.T(), err, "failed to fill description")

	err = suite.page.Locator("input[name=amount]").Fill(amount)
	require.NoError(suite.T(), err, "failed to fill amount")

	err = suite.page.Locator("input[name=category]").Fill(category)
	require.NoError(suite.T(), err, "failed to fill category")

	err = suite.page.Locator("button.submit").Click()
	require.NoError(suite.T(), err, "failed to submit expense")
}

func (suite *E2ETestSuite) TestCompleteUserFlow() {
	// Login
	suite.login("testuser", "testpass123")

	// Verify Homepage
	err := suite.expect.Locator(suite.page.Locator(".summary small")).ToHaveText("Total")
	require.NoError(suite.T(), err, "homepage assertion failed")

	// Create Expense - Click add button
	err = suite.page.Locator(".fab-add").Click()
	require.NoError(suite.T(), err, "failed to click add button")

	suite.fillExpense("Lunch Test", "12.50", "Food")

	// Verify in List - Wait for expense item to appear
	err = suite.expect.Locator(suite.page.Locator(".expense-item")).ToHaveCount(1)
	require.NoError(suite.T(), err, "expense item count mismatch")

	item := suite.page.Locator(".expense-item").First()
	err = suite.expect.Locator(item.Locator(".expense-details strong")).ToHaveText("Lunch Test")
	require.NoError(suite.T(), err, "description mismatch")

	err = suite.expect.Locator(item.Locator(".expense-amount")).ToContainText("12.50")
	require.NoError(suite.T(), err, "amount mismatch")

	err = suite.expect.Locator(suite.page.Locator(".total")).ToHaveText("12.50")
	require.NoError(suite.T(), err, "total mismatch")

	// Edit the amount using a comma decimal separator
	err = item.Locator("a.edit").Click()
	require.NoError(suite.T(), err, "failed to click edit")

	suite.fillExpense("Lunch Test", "15,75", "Food")

	err = suite.expect.Locator(item.Locator(".expense-amount")).ToContainText("15.75")
	require.NoError(suite.T(), err, "edited amount mismatch")

	// Delete
	err = item.Locator("button.delete").Click()
	require.NoError(suite.T(), err, "failed to click delete")

	err = suite.expect.Locator(suite.page.Locator(".expense-item")).ToHaveCount(0)
	require.NoError(suite.T(), err, "expense was not deleted")

	err = suite.expect.Locator(suite.page.Locator(".empty")).ToBeVisible()
	require.NoError(suite.T(), err, "empty state not shown")
}

func (suite *E2ETestSuite) TestInvalidExpenseShowsError() {
	suite.login("testuser", "testpass123")

	err := suite.page.Locator(".fab-add").Click()
	require.NoError(suite.T(), err, "failed to click add button")

	suite.fillExpense("Bad amount", "abc", "Misc")

	err = suite.expect.Locator(suite.page.Locator(".form-screen .error")).ToBeVisible()
	require.NoError(suite.T(), err, "validation error not shown")

	// The form keeps what was typed
	err = suite.expect.Locator(suite.page.Locator("input[name=description]")).ToHaveValue("Bad amount")
	require.NoError(suite.T(), err, "description not preserved")
}

func (suite *E2ETestSuite) TestRegisterAndLogout() {
	err := suite.page.Locator("a[href='/register']").Click()
	require.NoError(suite.T(), err, "failed to open register page")

	err = suite.expect.Locator(suite.page.Locator(".register-form")).ToBeVisible()
	require.NoError(suite.T(), err, "register form not visible")

	err = suite.page.Locator("input[name=username]").Fill("newcomer")
	require.NoError(suite.T(), err, "failed to fill username")
	err = suite.page.Locator("input[name=password]").Fill("newcomer-pass")
	require.NoError(suite.T(), err, "failed to fill password")
	err = suite.page.Locator(".register-btn").Click()
	require.NoError(suite.T(), err, "failed to submit registration")

	err = suite.expect.Locator(suite.page.Locator(".flash-success")).ToContainText("Registration successful")
	require.NoError(suite.T(), err, "registration flash not shown")

	suite.login("newcomer", "newcomer-pass")

	// A fresh account sees none of the other users' expenses
	err = suite.expect.Locator(suite.page.Locator(".expense-item")).ToHaveCount(0)
	require.NoError(suite.T(), err, "new user should have no expenses")

	err = suite.page.Locator("a.logout").Click()
	require.NoError(suite.T(), err, "failed to log out")

	err = suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "login form not shown after logout")

	// The dashboard is no longer reachable
	_, err = suite.page.Goto(appURL + "/dashboard")
	require.NoError(suite.T(), err)
	err = suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "dashboard reachable after logout")
}

func (suite *E2ETestSuite) TestLoginRejectsBadPassword() {
	err := suite.page.Locator("input[name=username]").Fill("testuser")
	require.NoError(suite.T(), err)
	err = suite.page.Locator("input[name=password]").Fill("wrong-password")
	require.NoError(suite.T(), err)
	err = suite.page.Locator(".login-btn").Click()
	require.NoError(suite.T(), err)

	err = suite.expect.Locator(suite.page.Locator(".auth-screen .error")).ToContainText("Invalid credentials")
	require.NoError(suite.T(), err, "login error not shown")
}

// TestE2ESuite runs the e2e test suite
func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
