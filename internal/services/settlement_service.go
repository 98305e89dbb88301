package services

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/spf13/viper"

	"github.com/ffarena/backend/internal/models"
)

// SettlementService turns approved withdrawals into ISO 20022 messages for
// the payout rail. The held amount was already debited when the withdrawal
// was requested; settlement only moves the money off-platform.
type SettlementService struct{}

func NewSettlementService() *SettlementService {
	return &SettlementService{}
}

// CreatePacs008 builds a pacs.008 customer credit transfer for one approved
// withdrawal. Debtor is the platform float account; creditor is the player's
// payout destination.
func (s *SettlementService) CreatePacs008(wr *models.WithdrawalRequest, payeeName string) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	viper.SetDefault("settlement.currency", "BDT")
	viper.SetDefault("settlement.bic", "FFARENAX")

	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := time.Now()
	currency := viper.GetString("settlement.currency")

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(currency),
				Value: wr.Amount.InexactFloat64(),
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(wr.ID)}[0],
					EndToEndId: common.Max35Text(wr.ID),
					TxId:       &[]common.Max35Text{common.Max35Text(wr.ID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(currency),
					Value: wr.Amount.InexactFloat64(),
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(viper.GetString("settlement.bic"))}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text("FF Arena Payouts")}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(wr.PaymentMethod),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(payeeName)}[0],
				},
			},
		},
	}

	return doc, nil
}

// CreatePacs002 builds a pacs.002 status report for a withdrawal.
func (s *SettlementService) CreatePacs002(wr *models.WithdrawalRequest, status string) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	msgId := uuid.New().String()
	creDtTm := time.Now()

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(wr.ID)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(wr.ID)}[0],
				OrgnlTxId:       &[]common.Max35Text{common.Max35Text(wr.ID)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0], // ACCP, RJCT, ACSC, etc.
			},
		},
	}

	return doc, nil
}

// SendToSettlement serializes the message and hands it to the payout rail.
func (s *SettlementService) SendToSettlement(doc interface{}) error {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	// TODO: wire the bKash disbursement gateway once credentials exist
	fmt.Printf("Sending to settlement: %s\n", string(xmlData))
	return nil
}

// ConvertToXML converts an ISO 20022 document to an XML string.
func (s *SettlementService) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
