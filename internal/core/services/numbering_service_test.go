package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/facturio/invoice-engine/internal/apperrors"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
	"github.com/facturio/invoice-engine/internal/core/services"
)

// --- Mock NumberReader ---
type MockNumberReader struct {
	mock.Mock
}

func (m *MockNumberReader) FindLastNumberByPrefix(ctx context.Context, prefix string) (string, error) {
	args := m.Called(ctx, prefix)
	return args.String(0), args.Error(1)
}

func (m *MockNumberReader) ListNumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Test Suite ---
type NumberGeneratorTestSuite struct {
	suite.Suite
	mockRepo *MockNumberReader
	service  portssvc.NumberGeneratorSvc

	yearPrefix string
}

func (suite *NumberGeneratorTestSuite) SetupTest() {
	suite.mockRepo = new(MockNumberReader)
	suite.service = services.NewNumberGeneratorService(suite.mockRepo, true)
	suite.yearPrefix = fmt.Sprintf("INV%d", time.Now().Year())
}

func (suite *NumberGeneratorTestSuite) TestNextNumber_FirstOfYear() {
	ctx := context.Background()
	suite.mockRepo.On("FindLastNumberByPrefix", ctx, suite.yearPrefix).Return("", apperrors.ErrNotFound).Once()
	suite.mockRepo.On("ListNumbersByPrefix", ctx, suite.yearPrefix).Return([]string{}, nil).Once()

	number, err := suite.service.NextNumber(ctx, "INV")

	suite.Require().NoError(err)
	suite.Equal(suite.yearPrefix+"001", number)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *NumberGeneratorTestSuite) TestNextNumber_Increments() {
	ctx := context.Background()
	suite.mockRepo.On("FindLastNumberByPrefix", ctx, suite.yearPrefix).Return(suite.yearPrefix+"001", nil).Once()
	suite.mockRepo.On("ListNumbersByPrefix", ctx, suite.yearPrefix).Return([]string{suite.yearPrefix + "001"}, nil).Once()

	number, err := suite.service.NextNumber(ctx, "INV")

	suite.Require().NoError(err)
	suite.Equal(suite.yearPrefix+"002", number)
}

func (suite *NumberGeneratorTestSuite) TestNextNumber_SkipsCollisions() {
	ctx := context.Background()
	existing := []string{
		suite.yearPrefix + "007",
		suite.yearPrefix + "008",
		suite.yearPrefix + "009",
	}
	suite.mockRepo.On("FindLastNumberByPrefix", ctx, suite.yearPrefix).Return(suite.yearPrefix+"006", nil).Once()
	suite.mockRepo.On("ListNumbersByPrefix", ctx, suite.yearPrefix).Return(existing, nil).Once()

	number, err := suite.service.NextNumber(ctx, "INV")

	suite.Require().NoError(err)
	suite.Equal(suite.yearPrefix+"010", number)
}

func (suite *NumberGeneratorTestSuite) TestNextNumber_WideSequenceKeepsWidth() {
	ctx := context.Background()
	suite.mockRepo.On("FindLastNumberByPrefix", ctx, suite.yearPrefix).Return(suite.yearPrefix+"999", nil).Once()
	suite.mockRepo.On("ListNumbersByPrefix", ctx, suite.yearPrefix).Return([]string{suite.yearPrefix + "999"}, nil).Once()

	number, err := suite.service.NextNumber(ctx, "INV")

	suite.Require().NoError(err)
	suite.Equal(suite.yearPrefix+"1000", number)
}

func (suite *NumberGeneratorTestSuite) TestNextNumber_NoYearReset() {
	ctx := context.Background()
	svc := services.NewNumberGeneratorService(suite.mockRepo, false)
	suite.mockRepo.On("FindLastNumberByPrefix", ctx, "AV").Return("AV012", nil).Once()
	suite.mockRepo.On("ListNumbersByPrefix", ctx, "AV").Return([]string{"AV012"}, nil).Once()

	number, err := svc.NextNumber(ctx, "AV")

	suite.Require().NoError(err)
	suite.Equal("AV013", number)
}

func (suite *NumberGeneratorTestSuite) TestNextNumber_RepoError() {
	ctx := context.Background()
	suite.mockRepo.On("FindLastNumberByPrefix", ctx, suite.yearPrefix).Return("", apperrors.ErrInternal).Once()

	_, err := suite.service.NextNumber(ctx, "INV")

	suite.Require().Error(err)
}

func TestNumberGeneratorTestSuite(t *testing.T) {
	suite.Run(t, new(NumberGeneratorTestSuite))
}
