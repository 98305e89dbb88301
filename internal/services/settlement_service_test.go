package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ffarena/backend/internal/models"
)

func approvedWithdrawal() *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		ID:             "wd123",
		AccountID:      "acc1",
		Amount:         decimal.RequireFromString("150.50"),
		PaymentMethod:  "bkash",
		PaymentDetails: "01712345678",
		Status:         models.WithdrawalApproved,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestSettlementService_CreatePacs008(t *testing.T) {
	service := NewSettlementService()

	t.Run("create valid pacs008", func(t *testing.T) {
		wr := approvedWithdrawal()

		doc, err := service.CreatePacs008(wr, "HeadHunter")
		assert.NoError(t, err)
		assert.NotNil(t, doc)
		assert.NotEmpty(t, doc.GrpHdr.MsgId)
		assert.Equal(t, "1", string(doc.GrpHdr.NbOfTxs))
		assert.Equal(t, "BDT", string(doc.GrpHdr.TtlIntrBkSttlmAmt.Ccy))
		assert.Equal(t, 150.50, doc.GrpHdr.TtlIntrBkSttlmAmt.Value)
		assert.Len(t, doc.CdtTrfTxInf, 1)
		assert.Equal(t, wr.ID, string(*doc.CdtTrfTxInf[0].PmtId.InstrId))
		assert.Equal(t, wr.ID, string(doc.CdtTrfTxInf[0].PmtId.EndToEndId))
		assert.Equal(t, "bkash", string(doc.CdtTrfTxInf[0].CdtrAgt.FinInstnId.ClrSysMmbId.MmbId))
		assert.Equal(t, "HeadHunter", string(*doc.CdtTrfTxInf[0].Cdtr.Nm))
	})
}

func TestSettlementService_CreatePacs002(t *testing.T) {
	service := NewSettlementService()

	t.Run("create valid pacs002", func(t *testing.T) {
		wr := approvedWithdrawal()

		doc, err := service.CreatePacs002(wr, "ACCP")
		assert.NoError(t, err)
		assert.NotNil(t, doc)
		assert.NotEmpty(t, doc.GrpHdr.MsgId)
		assert.Len(t, doc.TxInfAndSts, 1)
		assert.Equal(t, wr.ID, string(*doc.TxInfAndSts[0].OrgnlInstrId))
		assert.Equal(t, wr.ID, string(*doc.TxInfAndSts[0].OrgnlEndToEndId))
		assert.Equal(t, "ACCP", string(*doc.TxInfAndSts[0].TxSts))
	})
}

func TestSettlementService_ConvertToXML(t *testing.T) {
	service := NewSettlementService()

	t.Run("convert to XML", func(t *testing.T) {
		doc, err := service.CreatePacs008(approvedWithdrawal(), "HeadHunter")
		assert.NoError(t, err)

		xmlString, err := service.ConvertToXML(doc)
		assert.NoError(t, err)
		assert.NotEmpty(t, xmlString)
		assert.Contains(t, xmlString, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>")
		assert.Contains(t, xmlString, "wd123")
		assert.Contains(t, xmlString, "BDT")
	})

	t.Run("convert invalid struct", func(t *testing.T) {
		invalidStruct := make(chan int)

		xmlString, err := service.ConvertToXML(invalidStruct)
		assert.Error(t, err)
		assert.Empty(t, xmlString)
		assert.Contains(t, err.Error(), "failed to marshal XML")
	})
}

func TestSettlementService_SendToSettlement(t *testing.T) {
	service := NewSettlementService()

	t.Run("send to settlement", func(t *testing.T) {
		doc, err := service.CreatePacs008(approvedWithdrawal(), "HeadHunter")
		assert.NoError(t, err)

		err = service.SendToSettlement(doc)
		assert.NoError(t, err)
	})

	t.Run("send invalid document", func(t *testing.T) {
		invalidDoc := make(chan int)

		err := service.SendToSettlement(invalidDoc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to marshal XML")
	})
}
